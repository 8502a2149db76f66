package service

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"chatshop/pkg/domain/model"
)

const maxPrice = 1e13

// ParseName accepts a category name or product title.
func ParseName(text string) (string, error) {
	name := strings.TrimSpace(text)
	if name == "" || allDigits(name) {
		return "", model.ErrInvalidName
	}
	return name, nil
}

func ParseText(text string) (string, error) {
	value := strings.TrimSpace(text)
	if value == "" {
		return "", model.ErrInvalidText
	}
	return value, nil
}

// ParsePrice converts a decimal amount into cents.
func ParsePrice(text string) (int64, error) {
	value := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 || amount > maxPrice {
		return 0, model.ErrInvalidPrice
	}
	return int64(math.Round(amount * 100)), nil
}

func ParseQuantity(text string) (int, error) {
	quantity, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || quantity < 0 {
		return 0, model.ErrInvalidQuantity
	}
	return quantity, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
