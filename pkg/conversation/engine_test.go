package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatshop/pkg/domain/model"
	"chatshop/pkg/domain/service"
	"chatshop/pkg/infrastructure/memory"
)

const (
	adminID    model.UserID = 100
	customerID model.UserID = 200
)

type fixture struct {
	engine  *Engine
	store   *memory.Store
	states  *memory.ConversationStore
	sender  *recordingSender
	catalog service.CatalogService
	cart    service.CartService
	orders  service.OrderService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := log.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	sender := &recordingSender{}
	states := memory.NewConversationStore()
	catalog := service.NewCatalogService(store.Categories(), store.Products(), nopDispatcher{})
	cart := service.NewCartService(store.CartLines(), store.Products())
	orders := service.NewOrderService(store.Orders(), store.OrderLines(), store.Products(), cart,
		NewNotifier(sender), nopDispatcher{}, adminID, logger)
	users := service.NewUserService(store.Users(), []model.UserID{adminID})

	return &fixture{
		engine:  NewEngine(catalog, cart, orders, users, states, logger),
		store:   store,
		states:  states,
		sender:  sender,
		catalog: catalog,
		cart:    cart,
		orders:  orders,
	}
}

func (f *fixture) text(user model.UserID, text string) []Reply {
	return f.engine.Handle(context.Background(), Event{UserID: user, ChatID: int64(user), Text: text})
}

func (f *fixture) press(user model.UserID, cmd Command) []Reply {
	encoded, err := Encode(cmd)
	if err != nil {
		panic(err)
	}
	return f.engine.Handle(context.Background(), Event{UserID: user, ChatID: int64(user), Token: encoded, CallbackID: "cb"})
}

func (f *fixture) step(t *testing.T, user model.UserID) model.Step {
	state, err := f.states.Load(context.Background(), user)
	require.NoError(t, err)
	return state.Step
}

func (f *fixture) seedProduct(t *testing.T, title string, priceCents int64, quantity int) *model.Product {
	t.Helper()
	ctx := context.Background()
	category, err := f.catalog.CreateCategory(ctx, "Category "+title)
	require.NoError(t, err)
	product, err := f.catalog.CreateProduct(ctx, model.ProductDraft{
		Title:      title,
		ImageRef:   "file-" + title,
		PriceCents: priceCents,
		Quantity:   quantity,
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	return product
}

func texts(replies []Reply) string {
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

func TestAdminCreatesCategoryAndProduct(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.text(adminID, labelAddCategory)
	assert.Equal(t, StepCategoryName, f.step(t, adminID))
	f.text(adminID, "Fiction")
	assert.Equal(t, model.StepIdle, f.step(t, adminID))

	categories, err := f.catalog.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	fiction := categories[0]
	assert.Equal(t, "Fiction", fiction.Name)

	f.text(adminID, labelAddProduct)
	f.text(adminID, "Dune")
	f.engine.Handle(ctx, Event{UserID: adminID, PhotoRef: "photo-dune"})
	f.text(adminID, "A desert planet")
	f.text(adminID, "50000")
	f.text(adminID, "0")
	replies := f.text(adminID, "10")
	require.Equal(t, StepCategoryChoice, f.step(t, adminID))
	require.NotEmpty(t, replies[0].Choices)

	replies = f.press(adminID, CategoryCmd{CategoryID: fiction.ID})
	assert.Contains(t, texts(replies), `"Dune"`)
	assert.Equal(t, model.StepIdle, f.step(t, adminID))

	products, err := f.catalog.ProductsInCategory(ctx, fiction.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	dune := products[0]
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, "photo-dune", dune.ImageRef)
	assert.Equal(t, "A desert planet", dune.Description)
	assert.Equal(t, int64(5000000), dune.PriceCents)
	assert.Equal(t, int64(0), dune.DiscountPriceCents)
	assert.Equal(t, 10, dune.Quantity)
}

func TestInvalidInputKeepsStep(t *testing.T) {
	f := setup(t)

	f.text(adminID, labelAddProduct)
	replies := f.text(adminID, "12345")
	assert.Contains(t, texts(replies), "digits")
	assert.Equal(t, StepTitle, f.step(t, adminID))

	f.text(adminID, "Emma")
	f.text(adminID, "no photo here")
	assert.Equal(t, StepImage, f.step(t, adminID))

	f.engine.Handle(context.Background(), Event{UserID: adminID, PhotoRef: "photo"})
	f.text(adminID, "Classic")
	f.text(adminID, "abc")
	assert.Equal(t, StepPrice, f.step(t, adminID))
	f.text(adminID, "-5")
	assert.Equal(t, StepPrice, f.step(t, adminID))
	f.text(adminID, "12,50")
	assert.Equal(t, StepDiscountPrice, f.step(t, adminID))
	f.text(adminID, "0")
	f.text(adminID, "1.5")
	assert.Equal(t, StepQuantity, f.step(t, adminID))

	f.text(adminID, "/cancel")
	assert.Equal(t, model.StepIdle, f.step(t, adminID))
}

func TestProductFormWithoutCategoriesEndsFlow(t *testing.T) {
	f := setup(t)

	f.text(adminID, labelAddProduct)
	f.text(adminID, "Emma")
	f.engine.Handle(context.Background(), Event{UserID: adminID, PhotoRef: "photo"})
	f.text(adminID, "Classic")
	f.text(adminID, "10")
	f.text(adminID, "0")
	replies := f.text(adminID, "3")

	assert.Contains(t, texts(replies), "no categories")
	assert.Equal(t, model.StepIdle, f.step(t, adminID))
}

func TestCategoryChoiceMustStillExist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gone, err := f.catalog.CreateCategory(ctx, "Gone")
	require.NoError(t, err)
	_, err = f.catalog.CreateCategory(ctx, "Kept")
	require.NoError(t, err)

	f.text(adminID, labelAddProduct)
	f.text(adminID, "Emma")
	f.engine.Handle(ctx, Event{UserID: adminID, PhotoRef: "photo"})
	f.text(adminID, "Classic")
	f.text(adminID, "10")
	f.text(adminID, "0")
	f.text(adminID, "3")
	_, err = f.catalog.DeleteCategory(ctx, gone.ID)
	require.NoError(t, err)

	replies := f.press(adminID, CategoryCmd{CategoryID: gone.ID})
	assert.Contains(t, texts(replies), "no longer exists")
	assert.Equal(t, StepCategoryChoice, f.step(t, adminID))

	products, err := f.catalog.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCustomerCannotUseAdminActions(t *testing.T) {
	f := setup(t)

	replies := f.text(customerID, labelAddCategory)
	assert.Contains(t, texts(replies), "administrators only")
	assert.Equal(t, model.StepIdle, f.step(t, customerID))

	replies = f.press(customerID, DecisionCmd{AdminID: adminID, UserID: customerID, OrderID: uuid.New(), Decision: model.Accept})
	assert.Contains(t, texts(replies), "administrators only")
}

func TestQuantityPickerStaysWithinStock(t *testing.T) {
	f := setup(t)
	product := f.seedProduct(t, "Dune", 500, 2)

	replies := f.press(customerID, ProductCmd{ProductID: product.ID})
	require.Len(t, replies, 1)
	assert.Equal(t, product.ImageRef, replies[0].PhotoRef)
	assert.Equal(t, StepQuantityAdjustment, f.step(t, customerID))

	replies = f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: -1})
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Alert)
	assert.Contains(t, replies[0].Text, "at least 1")

	f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
	replies = f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
	assert.Contains(t, texts(replies), "Only 2")

	state, err := f.states.Load(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, "2", state.Get(keyQuantity))
}

func TestTransientQuantityIsPerUser(t *testing.T) {
	f := setup(t)
	product := f.seedProduct(t, "Dune", 500, 10)
	other := model.UserID(300)

	f.press(customerID, ProductCmd{ProductID: product.ID})
	f.press(other, ProductCmd{ProductID: product.ID})
	f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
	f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})

	mine, err := f.states.Load(context.Background(), customerID)
	require.NoError(t, err)
	theirs, err := f.states.Load(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, "3", mine.Get(keyQuantity))
	assert.Equal(t, "1", theirs.Get(keyQuantity))
}

func TestCallbackOutsideItsStepIsIgnored(t *testing.T) {
	f := setup(t)
	product := f.seedProduct(t, "Dune", 500, 5)

	replies := f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Alert)
	assert.Equal(t, model.StepIdle, f.step(t, customerID))

	f.text(adminID, labelAddCategory)
	replies = f.press(adminID, ProductCmd{ProductID: product.ID})
	assert.Contains(t, texts(replies), "/cancel")
	assert.Equal(t, StepCategoryName, f.step(t, adminID))
}

func TestMalformedTokenIsReported(t *testing.T) {
	f := setup(t)

	replies := f.engine.Handle(context.Background(), Event{UserID: customerID, Token: "garbage", CallbackID: "cb"})
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Alert)
	assert.Contains(t, replies[0].Text, "no longer valid")
}

func TestCheckoutAndDecision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.seedProduct(t, "Dune", 500, 5)

	f.press(customerID, ProductCmd{ProductID: product.ID})
	f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
	f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
	f.press(customerID, AddToCartCmd{ProductID: product.ID})
	assert.Equal(t, model.StepIdle, f.step(t, customerID))

	items, err := f.cart.List(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Line.Quantity)

	replies := f.press(customerID, NavigateCmd{Target: TargetCheckout})
	require.Len(t, replies, 1)
	assert.Equal(t, labelSharePhone, replies[0].RequestContact)
	assert.Equal(t, StepPhoneNumber, f.step(t, customerID))

	f.text(customerID, "not a phone")
	assert.Equal(t, StepPhoneNumber, f.step(t, customerID))

	replies = f.engine.Handle(ctx, Event{UserID: customerID, Contact: &Contact{PhoneNumber: "998 90 123 45 67", UserID: customerID}})
	assert.Contains(t, texts(replies), "+998901234567")
	assert.Contains(t, texts(replies), "15.00")
	assert.Equal(t, StepFinalConfirmation, f.step(t, customerID))

	f.press(customerID, NavigateCmd{Target: TargetConfirm})
	assert.Equal(t, model.StepIdle, f.step(t, customerID))

	count, err := f.cart.Count(ctx, customerID)
	require.NoError(t, err)
	assert.Zero(t, count)

	history, err := f.orders.History(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, history.Orders, 1)
	order := history.Orders[0].Order
	assert.Equal(t, model.Pending, order.Status)
	assert.Equal(t, int64(1500), order.TotalCents)
	assert.Equal(t, "+998901234567", order.PhoneNumber)

	notices := f.sender.sent()
	require.Len(t, notices, 1)
	assert.Equal(t, adminID, notices[0].To)
	accept := notices[0].Choices[0][0].Token

	f.engine.Handle(ctx, Event{UserID: adminID, Token: accept, CallbackID: "cb"})
	stored, err := f.catalog.Product(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)

	notices = f.sender.sent()
	require.Len(t, notices, 2)
	assert.Equal(t, customerID, notices[1].To)
	assert.Contains(t, notices[1].Text, "accepted")

	replies = f.engine.Handle(ctx, Event{UserID: adminID, Token: accept, CallbackID: "cb"})
	assert.Contains(t, texts(replies), "already been accepted")
	stored, err = f.catalog.Product(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)
	assert.Len(t, f.sender.sent(), 2)
}

func TestConfirmTwiceSubmitsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.seedProduct(t, "Dune", 500, 5)
	require.NoError(t, f.cart.AddOrIncrement(ctx, customerID, product.ID, 1))

	f.press(customerID, NavigateCmd{Target: TargetCheckout})
	f.text(customerID, "+998901234567")
	f.press(customerID, NavigateCmd{Target: TargetConfirm})
	replies := f.press(customerID, NavigateCmd{Target: TargetConfirm})
	assert.Contains(t, texts(replies), "already been handled")

	history, err := f.orders.History(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, history.Orders, 1)
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	f := setup(t)

	replies := f.press(customerID, NavigateCmd{Target: TargetCheckout})
	assert.Contains(t, texts(replies), "empty")
	assert.Equal(t, model.StepIdle, f.step(t, customerID))
}

func TestConcurrentTapsAreSerialized(t *testing.T) {
	f := setup(t)
	product := f.seedProduct(t, "Dune", 500, 100)
	f.press(customerID, ProductCmd{ProductID: product.ID})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.press(customerID, AdjustCmd{ProductID: product.ID, Direction: 1})
		}()
	}
	wg.Wait()

	state, err := f.states.Load(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, "21", state.Get(keyQuantity))
}

func TestPersistenceFailureKeepsState(t *testing.T) {
	f := setup(t)
	failing := &failingStates{ConversationStore: f.states}
	f.engine.states = failing

	failing.failSave = true
	replies := f.text(adminID, labelAddCategory)
	require.Len(t, replies, 1)
	assert.Equal(t, retryText, replies[0].Text)
	assert.Equal(t, model.StepIdle, f.step(t, adminID))

	failing.failSave = false
	f.text(adminID, labelAddCategory)
	assert.Equal(t, StepCategoryName, f.step(t, adminID))
}

func TestRetryAfterFailedSaveCreatesCategoryOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	failing := &failingStates{ConversationStore: f.states}
	f.engine.states = failing

	f.text(adminID, labelAddCategory)
	failing.failSave = true
	replies := f.text(adminID, "Fiction")
	require.Len(t, replies, 1)
	assert.Equal(t, retryText, replies[0].Text)
	assert.Equal(t, StepCategoryName, f.step(t, adminID))
	categories, err := f.catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)

	failing.failSave = false
	replies = f.text(adminID, "Fiction")
	assert.Contains(t, texts(replies), `"Fiction" created`)
	assert.Equal(t, model.StepIdle, f.step(t, adminID))
	categories, err = f.catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestFailedSaveAfterProductCreatedStillReportsSuccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	category, err := f.catalog.CreateCategory(ctx, "Fiction")
	require.NoError(t, err)
	failing := &failingStates{ConversationStore: f.states}
	f.engine.states = failing

	f.text(adminID, labelAddProduct)
	f.text(adminID, "Dune")
	f.engine.Handle(ctx, Event{UserID: adminID, PhotoRef: "photo-dune"})
	f.text(adminID, "A desert planet")
	f.text(adminID, "500")
	f.text(adminID, "0")
	f.text(adminID, "3")
	require.Equal(t, StepCategoryChoice, f.step(t, adminID))

	failing.failSave = true
	failing.allowed = 1
	replies := f.press(adminID, CategoryCmd{CategoryID: category.ID})
	assert.Contains(t, texts(replies), `Product "Dune" created`)
	assert.NotContains(t, texts(replies), retryText)
	assert.Equal(t, model.StepIdle, f.step(t, adminID))

	failing.failSave = false
	f.press(adminID, CategoryCmd{CategoryID: category.ID})
	products, err := f.catalog.ProductsInCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestFailedSaveBeforeSubmitKeepsConfirmation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.seedProduct(t, "Dune", 500, 5)
	require.NoError(t, f.cart.AddOrIncrement(ctx, customerID, product.ID, 1))
	failing := &failingStates{ConversationStore: f.states}
	f.engine.states = failing

	f.press(customerID, NavigateCmd{Target: TargetCheckout})
	f.text(customerID, "+998901234567")
	failing.failSave = true
	replies := f.press(customerID, NavigateCmd{Target: TargetConfirm})
	assert.Equal(t, retryText, texts(replies))
	assert.Equal(t, StepFinalConfirmation, f.step(t, customerID))

	failing.failSave = false
	f.press(customerID, NavigateCmd{Target: TargetConfirm})
	history, err := f.orders.History(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, history.Orders, 1)
}

func TestDeleteCategoryCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	product := f.seedProduct(t, "Dune", 500, 5)
	require.NoError(t, f.cart.AddOrIncrement(ctx, customerID, product.ID, 2))

	f.text(adminID, labelDeleteCategory)
	assert.Equal(t, StepCategoryDeletion, f.step(t, adminID))
	f.press(adminID, CategoryCmd{CategoryID: product.CategoryID})
	assert.Equal(t, model.StepIdle, f.step(t, adminID))

	_, err := f.catalog.Product(ctx, product.ID)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	count, err := f.cart.Count(ctx, customerID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStartSearchAndLanguage(t *testing.T) {
	f := setup(t)
	f.seedProduct(t, "Dune Messiah", 500, 5)
	f.seedProduct(t, "Emma", 300, 5)

	replies := f.engine.Handle(context.Background(), Event{
		UserID:  customerID,
		Text:    "/start",
		Profile: Profile{FirstName: "Ann"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "welcome")
	assert.Equal(t, customerMenu, replies[0].Menu)

	replies = f.text(customerID, "/start")
	assert.NotContains(t, replies[0].Text, "welcome")

	replies = f.text(customerID, "/search dune")
	require.Len(t, replies, 1)
	require.Len(t, replies[0].Choices, 1)
	assert.Equal(t, "Dune Messiah", replies[0].Choices[0][0].Label)

	replies = f.press(customerID, LanguageCmd{Code: "ru"})
	assert.Contains(t, texts(replies), "Русский")
	user, err := f.store.Users().Find(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, "ru", user.Language)

	replies = f.press(customerID, LanguageCmd{Code: "fr"})
	assert.Contains(t, texts(replies), "not supported")
}

func TestAdminSeesAdminMenu(t *testing.T) {
	f := setup(t)

	replies := f.text(adminID, "/start")
	require.Len(t, replies, 1)
	assert.Equal(t, adminMenu, replies[0].Menu)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(service.Event) error { return nil }

type recordingSender struct {
	mu      sync.Mutex
	replies []Reply
}

func (s *recordingSender) Send(_ context.Context, reply Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply)
	return nil
}

func (s *recordingSender) sent() []Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Reply(nil), s.replies...)
}

type failingStates struct {
	model.ConversationStore
	failSave bool
	// allowed saves still succeed while failSave is set.
	allowed int
}

func (s *failingStates) Save(ctx context.Context, state *model.ConversationState) error {
	if s.failSave {
		if s.allowed == 0 {
			return errors.New("state store unavailable")
		}
		s.allowed--
	}
	return s.ConversationStore.Save(ctx, state)
}
