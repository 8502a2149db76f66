package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
)

var ErrInsufficientOrInvalidProduct = errors.New("product no longer exists")

// inventoryLedger is the only writer of product stock. It is reachable from
// the order workflow alone, on acceptance.
type inventoryLedger struct {
	products   model.ProductRepository
	dispatcher EventDispatcher
}

func (l *inventoryLedger) decrement(ctx context.Context, orderID, productID uuid.UUID, amount int) error {
	if amount < 1 {
		return model.ErrInvalidQuantity
	}

	err := l.products.DecrementStock(ctx, productID, amount)
	if model.IsNotFound(err) {
		return ErrInsufficientOrInvalidProduct
	}
	if err != nil {
		return err
	}

	_ = l.dispatcher.Dispatch(model.StockDecremented{ProductID: productID, OrderID: orderID, Amount: amount})
	return nil
}
