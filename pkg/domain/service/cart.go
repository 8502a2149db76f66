package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
)

var (
	ErrMinimumQuantity  = errors.New("at least one item must be ordered")
	ErrInvalidDirection = errors.New("quantity can only be adjusted by one")
)

// StockLimitError reports that the requested quantity exceeds the stock on hand.
type StockLimitError struct {
	Available int
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("only %d items are available", e.Available)
}

type CartService interface {
	// AddOrIncrement stores quantity as the full desired amount for the product.
	AddOrIncrement(ctx context.Context, userID model.UserID, productID uuid.UUID, quantity int) error
	// AdjustQuantity moves the not yet committed quantity by direction (-1 or +1).
	AdjustQuantity(ctx context.Context, productID uuid.UUID, current, direction int) (int, error)
	List(ctx context.Context, userID model.UserID) ([]model.CartItem, error)
	Total(ctx context.Context, userID model.UserID) (int64, error)
	Count(ctx context.Context, userID model.UserID) (int, error)
	Clear(ctx context.Context, userID model.UserID) error
}

func NewCartService(lines model.CartRepository, products model.ProductRepository) CartService {
	return &cartService{lines: lines, products: products}
}

type cartService struct {
	lines    model.CartRepository
	products model.ProductRepository
}

func (s *cartService) AddOrIncrement(ctx context.Context, userID model.UserID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}
	if _, err := s.products.Find(ctx, productID); err != nil {
		return err
	}

	lineID, err := s.lines.NextID()
	if err != nil {
		return err
	}

	return s.lines.Upsert(ctx, &model.CartLine{
		ID:        lineID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *cartService) AdjustQuantity(ctx context.Context, productID uuid.UUID, current, direction int) (int, error) {
	switch direction {
	case -1:
		if current <= 1 {
			return current, ErrMinimumQuantity
		}
		return current - 1, nil
	case 1:
		product, err := s.products.Find(ctx, productID)
		if err != nil {
			return current, err
		}
		if current+1 > product.Quantity {
			return current, &StockLimitError{Available: product.Quantity}
		}
		return current + 1, nil
	default:
		return current, ErrInvalidDirection
	}
}

func (s *cartService) List(ctx context.Context, userID model.UserID) ([]model.CartItem, error) {
	lines, err := s.lines.FindBy(ctx, model.CartLineUserID, userID)
	if err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.Find(ctx, line.ProductID)
		if model.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, model.CartItem{Line: line, Product: *product})
	}
	return items, nil
}

func (s *cartService) Total(ctx context.Context, userID model.UserID) (int64, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	return model.CartTotalCents(items), nil
}

func (s *cartService) Count(ctx context.Context, userID model.UserID) (int, error) {
	lines, err := s.lines.FindBy(ctx, model.CartLineUserID, userID)
	if err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (s *cartService) Clear(ctx context.Context, userID model.UserID) error {
	_, err := s.lines.DeleteBy(ctx, model.CartLineUserID, userID)
	return err
}
