package conversation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
	"chatshop/pkg/domain/service"
)

func (t *turn) showCategories() error {
	categories, err := t.catalog.Categories(t.ctx)
	if err != nil {
		return err
	}
	count, err := t.cart.Count(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}
	t.reply(categoryList(t.ev.UserID, categories, count))
	return nil
}

func (t *turn) showCategory(c CategoryCmd) error {
	category, err := t.catalog.Category(t.ctx, c.CategoryID)
	if model.IsNotFound(err) {
		t.notice("This category no longer exists.")
		return t.showCategories()
	}
	if err != nil {
		return err
	}
	products, err := t.catalog.ProductsInCategory(t.ctx, category.ID)
	if err != nil {
		return err
	}
	t.state.Reset()
	title := category.Name
	if len(products) == 0 {
		title += "\n\nNo books here yet."
	}
	t.reply(productList(t.ev.UserID, title, products))
	return nil
}

// openProduct shows the product card and starts the quantity picker at 1.
func (t *turn) openProduct(c ProductCmd) error {
	product, err := t.catalog.Product(t.ctx, c.ProductID)
	if model.IsNotFound(err) {
		t.notice("This book is no longer available.")
		return nil
	}
	if err != nil {
		return err
	}
	if product.Quantity < 1 {
		t.notice("This book is out of stock.")
		return nil
	}
	count, err := t.cart.Count(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}

	t.state.Reset()
	t.state.Step = StepQuantityAdjustment
	t.state.Set(keyProduct, product.ID.String())
	t.state.Set(keyQuantity, "1")
	t.reply(productCard(t.ev.UserID, *product, 1, count))
	return nil
}

// pickerQuantity returns the transient quantity when the picker is open for
// the given product.
func (t *turn) pickerQuantity(productID uuid.UUID) (int, bool) {
	if t.state.Step != StepQuantityAdjustment || t.state.Get(keyProduct) != productID.String() {
		t.notice("This button belongs to a closed view. Open the book again.")
		return 0, false
	}
	quantity, err := strconv.Atoi(t.state.Get(keyQuantity))
	if err != nil || quantity < 1 {
		quantity = 1
	}
	return quantity, true
}

func (t *turn) adjust(c AdjustCmd) error {
	current, ok := t.pickerQuantity(c.ProductID)
	if !ok {
		return nil
	}

	next, err := t.cart.AdjustQuantity(t.ctx, c.ProductID, current, c.Direction)
	var limit *service.StockLimitError
	switch {
	case errors.Is(err, service.ErrMinimumQuantity):
		t.notice("You can order at least 1 copy.")
		return nil
	case errors.As(err, &limit):
		t.notice(fmt.Sprintf("Only %d copies are available right now.", limit.Available))
		return nil
	case model.IsNotFound(err):
		t.state.Reset()
		t.notice("This book is no longer available.")
		return nil
	case err != nil:
		return err
	}

	product, err := t.catalog.Product(t.ctx, c.ProductID)
	if err != nil {
		return err
	}
	count, err := t.cart.Count(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}
	t.state.Set(keyQuantity, strconv.Itoa(next))
	t.reply(productCard(t.ev.UserID, *product, next, count))
	return nil
}

func (t *turn) addToCart(c AddToCartCmd) error {
	quantity, ok := t.pickerQuantity(c.ProductID)
	if !ok {
		return nil
	}

	err := t.cart.AddOrIncrement(t.ctx, t.ev.UserID, c.ProductID, quantity)
	if model.IsNotFound(err) {
		t.state.Reset()
		t.notice("This book is no longer available.")
		return nil
	}
	if err != nil {
		return err
	}

	t.state.Reset()
	t.notice(fmt.Sprintf("Added %d to your cart.", quantity))
	return t.showCategories()
}

func (t *turn) showCart() error {
	items, err := t.cart.List(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}
	t.reply(cartView(t.ev.UserID, items, model.CartTotalCents(items)))
	return nil
}

func (t *turn) showHistory() error {
	history, err := t.orders.History(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}
	t.reply(historyView(t.ev.UserID, history))
	return nil
}

func (t *turn) search(query string) error {
	if strings.TrimSpace(query) == "" {
		t.say("Usage: /search <text>")
		return nil
	}
	products, err := t.catalog.Search(t.ctx, query)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		t.say("Nothing found.")
		return nil
	}
	t.reply(pickProduct(t.ev.UserID, fmt.Sprintf("Found %d:", len(products)), products))
	return nil
}

func (t *turn) navigate(c NavigateCmd) error {
	switch c.Target {
	case TargetCategories:
		if !t.browsable() {
			return nil
		}
		t.state.Reset()
		return t.showCategories()
	case TargetCart:
		if !t.browsable() {
			return nil
		}
		t.state.Reset()
		return t.showCart()
	case TargetClearCart:
		if !t.browsable() {
			return nil
		}
		if err := t.cart.Clear(t.ctx, t.ev.UserID); err != nil {
			return err
		}
		t.state.Reset()
		t.notice("Your cart has been cleared.")
		return t.showCategories()
	case TargetCheckout:
		return t.checkout()
	case TargetConfirm:
		return t.confirm()
	case TargetCancel:
		t.state.Reset()
		t.sayWithMenu("Cancelled.")
	}
	return nil
}

func (t *turn) checkout() error {
	if !t.browsable() {
		return nil
	}
	count, err := t.cart.Count(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}
	if count == 0 {
		t.notice("Your cart is empty.")
		return nil
	}
	t.state.Reset()
	t.state.Step = StepPhoneNumber
	t.reply(Reply{
		Text:           "Send your phone number, or share it with the button below.",
		RequestContact: labelSharePhone,
	})
	return nil
}

func (t *turn) onContact() error {
	if t.state.Step != StepPhoneNumber {
		t.say("A phone number is only needed at checkout.")
		return nil
	}
	if t.ev.Contact.UserID != 0 && t.ev.Contact.UserID != t.ev.UserID {
		t.say("Please share your own contact.")
		return nil
	}
	return t.acceptPhone(t.ev.Contact.PhoneNumber)
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// normalizePhone strips separators and checks the remaining digits.
func normalizePhone(text string) (string, bool) {
	phone := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	if !phonePattern.MatchString(phone) {
		return "", false
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone, true
}

func (t *turn) acceptPhone(text string) error {
	phone, ok := normalizePhone(text)
	if !ok {
		t.say("That does not look like a phone number. Send it again, for example +998901234567.")
		return nil
	}

	items, err := t.cart.List(t.ctx, t.ev.UserID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		t.state.Reset()
		t.sayWithMenu("Your cart is empty.")
		return nil
	}

	t.state.Set(keyPhone, phone)
	t.state.Step = StepFinalConfirmation
	t.reply(confirmationView(t.ev.UserID, items, model.CartTotalCents(items), phone))
	return nil
}

func (t *turn) confirm() error {
	if t.state.Step != StepFinalConfirmation {
		t.notice("This order has already been handled.")
		return nil
	}
	phone := t.state.Get(keyPhone)

	var summary *model.OrderSummary
	err := t.commit(func() (err error) {
		summary, err = t.orders.Submit(t.ctx, t.ev.UserID, phone)
		return err
	})
	if errors.Is(err, service.ErrEmptyCart) {
		t.state.Reset()
		t.notice("Your cart is empty.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := t.users.UpdatePhone(t.ctx, t.ev.UserID, phone); err != nil {
		t.logger.WithError(err).Warn("failed to store phone number")
	}
	t.sayWithMenu(fmt.Sprintf("Order #%s has been sent for confirmation. Total: %s",
		shortID(summary.Order), formatCents(summary.Order.TotalCents)))
	return nil
}
