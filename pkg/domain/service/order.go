package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"chatshop/pkg/domain/model"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrOrderAlreadyDecided = errors.New("order has already been decided")
)

// OrderNotifier delivers order updates to the admin and to the customer.
// Delivery failures never roll back an order transition.
type OrderNotifier interface {
	NotifyAdmin(ctx context.Context, adminID model.UserID, summary model.OrderSummary) error
	NotifyCustomer(ctx context.Context, order model.Order) error
}

type OrderService interface {
	Submit(ctx context.Context, userID model.UserID, phoneNumber string) (*model.OrderSummary, error)
	Decide(ctx context.Context, orderID uuid.UUID, decision model.Decision) (*model.Order, error)
	History(ctx context.Context, userID model.UserID) (*model.OrderHistory, error)
}

// NewOrderService wires the order workflow. adminID is the recipient of new
// order notifications; zero means none is configured.
func NewOrderService(
	orders model.OrderRepository,
	lines model.OrderLineRepository,
	products model.ProductRepository,
	cart CartService,
	notifier OrderNotifier,
	dispatcher EventDispatcher,
	adminID model.UserID,
	logger log.FieldLogger,
) OrderService {
	return &orderService{
		orders:     orders,
		lines:      lines,
		cart:       cart,
		ledger:     &inventoryLedger{products: products, dispatcher: dispatcher},
		notifier:   notifier,
		dispatcher: dispatcher,
		adminID:    adminID,
		logger:     logger,
	}
}

type orderService struct {
	orders     model.OrderRepository
	lines      model.OrderLineRepository
	cart       CartService
	ledger     *inventoryLedger
	notifier   OrderNotifier
	dispatcher EventDispatcher
	adminID    model.UserID
	logger     log.FieldLogger
}

func (s *orderService) Submit(ctx context.Context, userID model.UserID, phoneNumber string) (*model.OrderSummary, error) {
	items, err := s.cart.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	orderID, err := s.orders.NextID()
	if err != nil {
		return nil, err
	}

	order := model.Order{
		ID:          orderID,
		UserID:      userID,
		PhoneNumber: phoneNumber,
		TotalCents:  model.CartTotalCents(items),
		Status:      model.Pending,
		CreatedAt:   time.Now().UTC(),
	}

	lines := make([]model.OrderLine, 0, len(items))
	for _, item := range items {
		lineID, err := s.lines.NextID()
		if err != nil {
			return nil, err
		}
		lines = append(lines, model.OrderLine{
			ID:             lineID,
			OrderID:        orderID,
			ProductID:      item.Product.ID,
			UserID:         userID,
			Quantity:       item.Line.Quantity,
			Title:          item.Product.Title,
			UnitPriceCents: item.Product.PriceCents,
		})
	}

	if err := s.orders.CreateWithLines(ctx, &order, lines); err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(log.Fields{"order_id": orderID, "user_id": userID})

	// The order is committed at this point; a failed clear leaves stale lines
	// in the cart but must not report the submission as failed.
	if err := s.cart.Clear(ctx, userID); err != nil {
		logger.WithError(err).Error("failed to clear cart after order submission")
	}

	summary := model.OrderSummary{Order: order, Lines: lines}
	_ = s.dispatcher.Dispatch(model.OrderSubmitted{OrderID: orderID, UserID: userID, TotalCents: order.TotalCents, Lines: len(lines)})

	if s.adminID == 0 {
		logger.Warn("no admin recipient configured, order stays pending")
	} else if err := s.notifier.NotifyAdmin(ctx, s.adminID, summary); err != nil {
		logger.WithError(err).Warn("failed to notify admin about new order")
	}

	return &summary, nil
}

func (s *orderService) Decide(ctx context.Context, orderID uuid.UUID, decision model.Decision) (*model.Order, error) {
	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.Pending {
		return order, ErrOrderAlreadyDecided
	}

	now := time.Now().UTC()
	ok, err := s.orders.TransitionStatus(ctx, orderID, model.Pending, decision.Status(), now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race; report the status the winner set.
		if current, err := s.orders.Find(ctx, orderID); err == nil {
			order = current
		}
		return order, ErrOrderAlreadyDecided
	}

	order.Status = decision.Status()
	order.DecidedAt = &now
	logger := s.logger.WithFields(log.Fields{"order_id": orderID, "user_id": order.UserID, "decision": decision})

	if decision == model.Accept {
		if err := s.commitStock(ctx, order); err != nil {
			logger.WithError(err).Error("failed to read order lines for stock commitment")
		}
		_ = s.dispatcher.Dispatch(model.OrderAccepted{OrderID: orderID, UserID: order.UserID})
	} else {
		_ = s.dispatcher.Dispatch(model.OrderRejected{OrderID: orderID, UserID: order.UserID})
	}

	if err := s.notifier.NotifyCustomer(ctx, *order); err != nil {
		logger.WithError(err).Warn("failed to notify customer about order decision")
	}

	return order, nil
}

// commitStock decrements every line unconditionally. Stock is not re-validated
// here, so concurrent acceptances may drive a product below zero.
func (s *orderService) commitStock(ctx context.Context, order *model.Order) error {
	lines, err := s.lines.FindBy(ctx, model.OrderLineOrderID, order.ID)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := s.ledger.decrement(ctx, order.ID, line.ProductID, line.Quantity); err != nil {
			s.logger.WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			}).WithError(err).Warn("stock decrement skipped")
		}
	}
	return nil
}

func (s *orderService) History(ctx context.Context, userID model.UserID) (*model.OrderHistory, error) {
	orders, err := s.orders.FindBy(ctx, model.OrderUserID, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	history := &model.OrderHistory{Orders: make([]model.OrderSummary, 0, len(orders))}
	for _, order := range orders {
		lines, err := s.lines.FindBy(ctx, model.OrderLineOrderID, order.ID)
		if err != nil {
			return nil, err
		}
		summary := model.OrderSummary{Order: order, Lines: lines}
		history.Orders = append(history.Orders, summary)
		history.TotalCents += summary.LinesTotalCents()
	}
	return history, nil
}
