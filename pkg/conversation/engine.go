// Package conversation turns chat events into catalog, cart and order
// operations. Each user has one dialog state; events of the same user are
// handled one at a time.
package conversation

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"chatshop/pkg/domain/model"
	"chatshop/pkg/domain/service"
)

const (
	StepCategoryName       model.Step = "category_name"
	StepTitle              model.Step = "product_title"
	StepImage              model.Step = "product_image"
	StepDescription        model.Step = "product_description"
	StepPrice              model.Step = "product_price"
	StepDiscountPrice      model.Step = "product_discount_price"
	StepQuantity           model.Step = "product_quantity"
	StepCategoryChoice     model.Step = "product_category"
	StepCategoryDeletion   model.Step = "category_deletion"
	StepProductDeletion    model.Step = "product_deletion"
	StepQuantityAdjustment model.Step = "quantity_adjustment"
	StepPhoneNumber        model.Step = "phone_number"
	StepFinalConfirmation  model.Step = "final_confirmation"
)

// State keys.
const (
	keyTitle       = "title"
	keyImage       = "image"
	keyDescription = "description"
	keyPrice       = "price"
	keyDiscount    = "discount"
	keyQuantity    = "quantity"
	keyProduct     = "product"
	keyPhone       = "phone"
)

type Engine struct {
	catalog service.CatalogService
	cart    service.CartService
	orders  service.OrderService
	users   service.UserService
	states  model.ConversationStore
	locks   *keyedLock
	logger  log.FieldLogger
}

func NewEngine(
	catalog service.CatalogService,
	cart service.CartService,
	orders service.OrderService,
	users service.UserService,
	states model.ConversationStore,
	logger log.FieldLogger,
) *Engine {
	return &Engine{
		catalog: catalog,
		cart:    cart,
		orders:  orders,
		users:   users,
		states:  states,
		locks:   newKeyedLock(),
		logger:  logger,
	}
}

// Handle runs one event to completion and returns the replies for it.
// The dialog state is saved only when the event was handled without a
// persistence failure, so a failed step can be retried as is.
func (e *Engine) Handle(ctx context.Context, ev Event) []Reply {
	unlock := e.locks.Lock(ev.UserID)
	defer unlock()

	logger := e.logger.WithFields(log.Fields{"user_id": ev.UserID})

	state, err := e.states.Load(ctx, ev.UserID)
	if err != nil {
		logger.WithError(err).Error("failed to load conversation state")
		return []Reply{{To: ev.UserID, Text: retryText, Alert: ev.CallbackID != ""}}
	}

	t := &turn{
		Engine: e,
		ctx:    ctx,
		ev:     ev,
		state:  state.Clone(),
		logger: logger.WithField("step", state.Step),
	}
	if err := t.run(); err != nil {
		t.logger.WithError(err).Error("failed to handle event")
		if !t.committed {
			return []Reply{{To: ev.UserID, Text: retryText, Alert: ev.CallbackID != ""}}
		}
		return t.replies
	}
	if err := e.states.Save(ctx, t.state); err != nil {
		logger.WithError(err).Error("failed to save conversation state")
		if !t.committed {
			return []Reply{{To: ev.UserID, Text: retryText, Alert: ev.CallbackID != ""}}
		}
	}
	return t.replies
}

// turn is the handling of a single event.
type turn struct {
	*Engine
	ctx     context.Context
	ev      Event
	state   *model.ConversationState
	logger  log.FieldLogger
	replies []Reply
	// committed is set once a flow's final write went through. Later
	// failures no longer ask the user to retry.
	committed bool
}

func (t *turn) reply(r Reply) {
	if r.To == 0 {
		r.To = t.ev.UserID
	}
	t.replies = append(t.replies, r)
}

func (t *turn) say(text string) {
	t.reply(Reply{Text: text})
}

// notice answers a callback with a pop-up, or with a message for plain input.
func (t *turn) notice(text string) {
	t.reply(Reply{Text: text, Alert: true})
}

func (t *turn) menu() [][]string {
	if t.users.IsAdmin(t.ev.UserID) {
		return adminMenu
	}
	return customerMenu
}

func (t *turn) sayWithMenu(text string) {
	t.reply(Reply{Text: text, Menu: t.menu()})
}

// commit finishes a flow. The idle state is stored before write runs, so a
// write is never followed by a state that still asks for the same input. When
// write fails the previous state is put back.
func (t *turn) commit(write func() error) error {
	previous := t.state.Clone()
	t.state.Reset()
	if err := t.states.Save(t.ctx, t.state); err != nil {
		t.state = previous
		return err
	}
	if err := write(); err != nil {
		t.state = previous
		if restoreErr := t.states.Save(t.ctx, previous); restoreErr != nil {
			t.logger.WithError(restoreErr).Error("failed to restore conversation state")
		}
		return err
	}
	t.committed = true
	return nil
}

func (t *turn) run() error {
	switch {
	case t.ev.Token != "":
		return t.onCommand()
	case t.ev.Contact != nil:
		return t.onContact()
	case strings.HasPrefix(t.ev.Text, "/"):
		return t.onSlash()
	case isMenuLabel(t.ev.Text):
		return t.onMenu()
	default:
		return t.onInput()
	}
}

func (t *turn) onSlash() error {
	fields := strings.Fields(t.ev.Text)
	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	args := strings.TrimSpace(strings.TrimPrefix(t.ev.Text, fields[0]))

	switch name {
	case "/start":
		return t.start()
	case "/help":
		t.say(helpText)
	case "/language":
		t.reply(languageChoices(t.ev.UserID))
	case "/cancel":
		t.state.Reset()
		t.sayWithMenu("Cancelled.")
	case "/search":
		return t.search(args)
	case "/cart":
		t.state.Reset()
		return t.showCart()
	case "/orders":
		return t.showHistory()
	default:
		t.say("Unknown command.\n\n" + helpText)
	}
	return nil
}

func (t *turn) register() (bool, error) {
	_, created, err := t.users.Register(t.ctx, model.User{
		ID:        t.ev.UserID,
		FirstName: t.ev.Profile.FirstName,
		LastName:  t.ev.Profile.LastName,
		Username:  t.ev.Profile.Username,
		Language:  t.ev.Profile.Language,
	})
	return created, err
}

func (t *turn) start() error {
	created, err := t.register()
	if err != nil {
		return err
	}
	t.state.Reset()
	if created {
		t.sayWithMenu("Hello and welcome! Choose an option 👇")
	} else {
		t.sayWithMenu("Hello! Choose an option 👇")
	}
	return nil
}

func isMenuLabel(text string) bool {
	switch text {
	case labelBooks, labelCart, labelOrders, labelLanguage,
		labelAddCategory, labelAddProduct, labelDeleteCategory, labelDeleteProduct:
		return true
	}
	return false
}

// onMenu handles the reply keyboard. Pressing a menu button leaves any
// unfinished flow.
func (t *turn) onMenu() error {
	switch t.ev.Text {
	case labelBooks:
		t.state.Reset()
		return t.showCategories()
	case labelCart:
		t.state.Reset()
		return t.showCart()
	case labelOrders:
		return t.showHistory()
	case labelLanguage:
		t.reply(languageChoices(t.ev.UserID))
		return nil
	}

	if !t.requireAdmin() {
		return nil
	}
	t.state.Reset()
	switch t.ev.Text {
	case labelAddCategory:
		t.state.Step = StepCategoryName
		t.say("Send the name of the new category.")
	case labelAddProduct:
		t.state.Step = StepTitle
		t.say("Send the title of the new product.")
	case labelDeleteCategory:
		return t.pickCategoryToDelete()
	case labelDeleteProduct:
		return t.pickProductToDelete()
	}
	return nil
}

// requireAdmin is evaluated before any admin transition.
func (t *turn) requireAdmin() bool {
	if t.users.IsAdmin(t.ev.UserID) {
		return true
	}
	t.logger.Warn("admin action refused")
	t.notice("This action is available to administrators only.")
	return false
}

func (t *turn) onInput() error {
	switch t.state.Step {
	case StepCategoryName, StepTitle, StepImage, StepDescription, StepPrice,
		StepDiscountPrice, StepQuantity, StepCategoryChoice, StepCategoryDeletion, StepProductDeletion:
		if !t.requireAdmin() {
			t.state.Reset()
			return nil
		}
		return t.onAdminInput()
	case StepQuantityAdjustment:
		t.say("Use the ➖ and ➕ buttons to pick a quantity, or /cancel.")
	case StepPhoneNumber:
		return t.acceptPhone(t.ev.Text)
	case StepFinalConfirmation:
		t.say("Please confirm or cancel the order with the buttons above.")
	default:
		t.sayWithMenu("Please choose an option from the menu.")
	}
	return nil
}

func (t *turn) onCommand() error {
	cmd, err := Decode(t.ev.Token)
	if err != nil {
		t.logger.WithField("token", t.ev.Token).Warn("undecodable callback token")
		t.notice("This button is no longer valid.")
		return nil
	}

	switch c := cmd.(type) {
	case CategoryCmd:
		switch t.state.Step {
		case StepCategoryChoice:
			return t.finishProduct(c.CategoryID)
		case StepCategoryDeletion:
			return t.deleteCategory(c.CategoryID)
		}
		if !t.browsable() {
			return nil
		}
		return t.showCategory(c)
	case ProductCmd:
		if t.state.Step == StepProductDeletion {
			return t.deleteProduct(c.ProductID)
		}
		if !t.browsable() {
			return nil
		}
		return t.openProduct(c)
	case AdjustCmd:
		return t.adjust(c)
	case AddToCartCmd:
		return t.addToCart(c)
	case DecisionCmd:
		return t.decide(c)
	case LanguageCmd:
		return t.setLanguage(c)
	case NavigateCmd:
		return t.navigate(c)
	}
	return nil
}

// browsable reports whether shop buttons apply in the current step. Admin
// forms must be finished or cancelled first.
func (t *turn) browsable() bool {
	switch t.state.Step {
	case model.StepIdle, StepQuantityAdjustment, StepPhoneNumber, StepFinalConfirmation:
		return true
	}
	t.notice("Finish the current step first, or send /cancel.")
	return false
}

func (t *turn) setLanguage(c LanguageCmd) error {
	err := t.users.SetLanguage(t.ctx, t.ev.UserID, c.Code)
	if model.IsNotFound(err) {
		if _, err = t.register(); err != nil {
			return err
		}
		err = t.users.SetLanguage(t.ctx, t.ev.UserID, c.Code)
	}
	switch {
	case errors.Is(err, service.ErrUnsupportedLanguage):
		t.notice("This language is not supported.")
		return nil
	case err != nil:
		return err
	}
	t.sayWithMenu(languageNames[c.Code] + " selected.")
	return nil
}

func (t *turn) decide(c DecisionCmd) error {
	if !t.requireAdmin() {
		return nil
	}
	logger := t.logger.WithFields(log.Fields{"order_id": c.OrderID, "decision": c.Decision})
	if c.AdminID != t.ev.UserID {
		logger.WithField("addressed_to", c.AdminID).Info("order decided by another admin")
	}

	order, err := t.orders.Decide(t.ctx, c.OrderID, c.Decision)
	switch {
	case errors.Is(err, service.ErrOrderAlreadyDecided):
		t.notice("This order has already been " + order.Status.String() + ".")
		return nil
	case model.IsNotFound(err):
		t.notice("This order no longer exists.")
		return nil
	case err != nil:
		return err
	}

	logger.Info("order decided")
	t.say("Order #" + shortID(*order) + " " + order.Status.String() + ".")
	return nil
}
