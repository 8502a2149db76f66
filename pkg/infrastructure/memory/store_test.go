package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatshop/pkg/domain/model"
)

func seed(t *testing.T, s *Store) (model.Category, model.Product) {
	t.Helper()
	ctx := context.Background()
	category := model.Category{ID: uuid.New(), Name: "Fiction"}
	require.NoError(t, s.Categories().Create(ctx, &category))
	product := model.Product{ID: uuid.New(), CategoryID: category.ID, Title: "Dune", Quantity: 5}
	require.NoError(t, s.Products().Create(ctx, &product))
	return category, product
}

func TestCreateFindUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, product := seed(t, s)

	err := s.Products().Create(ctx, &product)
	assert.ErrorIs(t, err, errDuplicateKey)

	product.Title = "Dune Messiah"
	require.NoError(t, s.Products().Update(ctx, &product))
	found, err := s.Products().Find(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", found.Title)

	found.Title = "changed through the copy"
	again, err := s.Products().Find(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", again.Title)

	missing := model.Product{ID: uuid.New()}
	assert.ErrorIs(t, s.Products().Update(ctx, &missing), model.ErrProductNotFound)
	_, err = s.Users().Find(ctx, 42)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestFindByUndeclaredField(t *testing.T) {
	s := NewStore()

	_, err := s.Categories().FindBy(context.Background(), model.ProductCategoryID, uuid.New())
	assert.ErrorIs(t, err, model.ErrUnknownField)
}

func TestCategoryDeleteCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	category, product := seed(t, s)

	line := model.CartLine{ID: uuid.New(), UserID: 7, ProductID: product.ID, Quantity: 1}
	require.NoError(t, s.CartLines().Create(ctx, &line))
	orderLine := model.OrderLine{ID: uuid.New(), OrderID: uuid.New(), ProductID: product.ID, UserID: 7, Quantity: 1}
	require.NoError(t, s.OrderLines().Create(ctx, &orderLine))

	require.NoError(t, s.Categories().Delete(ctx, category.ID))

	products, _ := s.Products().FindAll(ctx)
	lines, _ := s.CartLines().FindAll(ctx)
	orderLines, _ := s.OrderLines().FindAll(ctx)
	assert.Empty(t, products)
	assert.Empty(t, lines)
	assert.Empty(t, orderLines)

	assert.ErrorIs(t, s.Categories().Delete(ctx, category.ID), model.ErrCategoryNotFound)
}

func TestOrderDeleteRemovesLines(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, product := seed(t, s)
	order := model.Order{ID: uuid.New(), UserID: 7}
	lines := []model.OrderLine{{ID: uuid.New(), OrderID: order.ID, ProductID: product.ID, Quantity: 1}}
	require.NoError(t, s.Orders().CreateWithLines(ctx, &order, lines))

	removed, err := s.Orders().DeleteBy(ctx, model.OrderUserID, model.UserID(7))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := s.OrderLines().FindBy(ctx, model.OrderLineOrderID, order.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCreateWithLinesRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, product := seed(t, s)
	lineID := uuid.New()
	order := model.Order{ID: uuid.New(), UserID: 7}
	lines := []model.OrderLine{
		{ID: lineID, OrderID: order.ID, ProductID: product.ID, Quantity: 1},
		{ID: lineID, OrderID: order.ID, ProductID: product.ID, Quantity: 2},
	}

	err := s.Orders().CreateWithLines(ctx, &order, lines)
	assert.ErrorIs(t, err, errDuplicateKey)

	_, err = s.Orders().Find(ctx, order.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	stored, _ := s.OrderLines().FindAll(ctx)
	assert.Empty(t, stored)
}

func TestUpsertOverwritesQuantity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, product := seed(t, s)
	first := model.CartLine{ID: uuid.New(), UserID: 7, ProductID: product.ID, Quantity: 3}
	require.NoError(t, s.CartLines().Upsert(ctx, &first))

	second := model.CartLine{ID: uuid.New(), UserID: 7, ProductID: product.ID, Quantity: 1}
	require.NoError(t, s.CartLines().Upsert(ctx, &second))
	assert.Equal(t, first.ID, second.ID)

	lines, err := s.CartLines().FindBy(ctx, model.CartLineUserID, model.UserID(7))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestTransitionStatusIsCompareAndSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	order := model.Order{ID: uuid.New(), UserID: 7, Status: model.Pending}
	require.NoError(t, s.Orders().Create(ctx, &order))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		moved int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Orders().TransitionStatus(ctx, order.ID, model.Pending, model.Accepted, time.Now())
			if err == nil && ok {
				mu.Lock()
				moved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, moved)

	_, err := s.Orders().TransitionStatus(ctx, uuid.New(), model.Pending, model.Accepted, time.Now())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestDecrementStockAllowsNegative(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_, product := seed(t, s)

	require.NoError(t, s.Products().DecrementStock(ctx, product.ID, 7))
	found, err := s.Products().Find(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, found.Quantity)

	assert.ErrorIs(t, s.Products().DecrementStock(ctx, uuid.New(), 1), model.ErrProductNotFound)
}

func TestSearchHonoursLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	category, _ := seed(t, s)
	for i := 0; i < 5; i++ {
		p := model.Product{ID: uuid.New(), CategoryID: category.ID, Title: "Dune Part"}
		require.NoError(t, s.Products().Create(ctx, &p))
	}

	found, err := s.Products().Search(ctx, "dune", 3)
	require.NoError(t, err)
	assert.Len(t, found, 3)
	assert.Equal(t, "Dune", found[0].Title)
}
