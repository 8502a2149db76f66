package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

var (
	ErrCategoryNotFound  = fmt.Errorf("category %w", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrCartLineNotFound  = fmt.Errorf("cart line %w", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrOrderLineNotFound = fmt.Errorf("order line %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
)

var (
	ErrInvalidName     = fmt.Errorf("%w: name must not be empty or consist of digits only", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: price must be a non-negative number", ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be a non-negative integer", ErrValidation)
	ErrInvalidText     = fmt.Errorf("%w: text must not be empty", ErrValidation)
	ErrUnknownField    = errors.New("field is not declared in the entity schema")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
