package tests

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"chatshop/pkg/domain/model"
	"chatshop/pkg/domain/service"
	"chatshop/pkg/infrastructure/memory"
)

const adminID model.UserID = 1

type services struct {
	store      *memory.Store
	catalog    service.CatalogService
	cart       service.CartService
	orders     service.OrderService
	users      service.UserService
	notifier   *mockNotifier
	dispatcher *mockEventDispatcher
}

func setup(t *testing.T) *services {
	t.Helper()
	logger := log.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	notifier := &mockNotifier{}
	dispatcher := &mockEventDispatcher{}
	cart := service.NewCartService(store.CartLines(), store.Products())
	return &services{
		store:      store,
		catalog:    service.NewCatalogService(store.Categories(), store.Products(), dispatcher),
		cart:       cart,
		orders:     service.NewOrderService(store.Orders(), store.OrderLines(), store.Products(), cart, notifier, dispatcher, adminID, logger),
		users:      service.NewUserService(store.Users(), []model.UserID{adminID}),
		notifier:   notifier,
		dispatcher: dispatcher,
	}
}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockEventDispatcher) Events() []service.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.Event(nil), m.events...)
}

type mockNotifier struct {
	mu        sync.Mutex
	admin     []model.OrderSummary
	customers []model.Order
	fail      bool
}

func (m *mockNotifier) NotifyAdmin(_ context.Context, _ model.UserID, summary model.OrderSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("chat unreachable")
	}
	m.admin = append(m.admin, summary)
	return nil
}

func (m *mockNotifier) NotifyCustomer(_ context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("chat unreachable")
	}
	m.customers = append(m.customers, order)
	return nil
}

func (m *mockNotifier) customerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.customers)
}
