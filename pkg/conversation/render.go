package conversation

import (
	"fmt"
	"strings"

	"chatshop/pkg/domain/model"
)

const (
	labelBooks          = "📚 Books"
	labelCart           = "🛒 Cart"
	labelOrders         = "📦 My orders"
	labelLanguage       = "🌐 Language"
	labelAddCategory    = "➕ Add category"
	labelAddProduct     = "➕ Add product"
	labelDeleteCategory = "🗑 Delete category"
	labelDeleteProduct  = "🗑 Delete product"
	labelSharePhone     = "📱 Share phone number"
)

var (
	customerMenu = [][]string{
		{labelBooks},
		{labelCart, labelOrders},
		{labelLanguage},
	}
	adminMenu = [][]string{
		{labelBooks},
		{labelAddCategory, labelAddProduct},
		{labelDeleteCategory, labelDeleteProduct},
	}
)

var languageNames = map[string]string{
	"uz":  "O'zbek",
	"en":  "English",
	"tur": "Türkçe",
	"ru":  "Русский",
	"ko":  "한국어",
}

const helpText = `Commands:
/start - start the bot
/help - show this help
/language - change the language
/search <text> - find books by title
/cart - show your cart
/orders - show your orders
/cancel - abort the current step`

const retryText = "Something went wrong, please try again."

// formatCents renders minor units as a decimal amount.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func shortID(order model.Order) string {
	return strings.ToUpper(order.ID.String()[:8])
}

// token encodes a command built by the engine itself. Those are always
// within the transport limit.
func token(cmd Command) string {
	t, err := Encode(cmd)
	if err != nil {
		return ""
	}
	return t
}

// grid lays out choices two per row.
func grid(choices []Choice) [][]Choice {
	rows := make([][]Choice, 0, (len(choices)+1)/2)
	for i := 0; i < len(choices); i += 2 {
		end := i + 2
		if end > len(choices) {
			end = len(choices)
		}
		rows = append(rows, choices[i:end])
	}
	return rows
}

func cartButton(count int) Choice {
	label := labelCart
	if count > 0 {
		label = fmt.Sprintf("%s (%d)", labelCart, count)
	}
	return Choice{Label: label, Token: token(NavigateCmd{Target: TargetCart})}
}

func categoryList(to model.UserID, categories []model.Category, cartCount int) Reply {
	choices := make([]Choice, 0, len(categories))
	for _, category := range categories {
		choices = append(choices, Choice{Label: category.Name, Token: token(CategoryCmd{CategoryID: category.ID})})
	}
	rows := grid(choices)
	rows = append(rows, []Choice{cartButton(cartCount)})

	text := "Choose a category 👇"
	if len(categories) == 0 {
		text = "The catalog is empty for now."
	}
	return Reply{To: to, Text: text, Choices: rows}
}

func productList(to model.UserID, title string, products []model.Product) Reply {
	choices := make([]Choice, 0, len(products))
	for _, product := range products {
		choices = append(choices, Choice{Label: product.Title, Token: token(ProductCmd{ProductID: product.ID})})
	}
	rows := grid(choices)
	rows = append(rows, []Choice{{Label: "◀️ Back", Token: token(NavigateCmd{Target: TargetCategories})}})
	return Reply{To: to, Text: title, Choices: rows}
}

func productCard(to model.UserID, product model.Product, quantity, cartCount int) Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", product.Title)
	if product.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", product.Description)
	}
	if product.DiscountPriceCents > 0 {
		fmt.Fprintf(&b, "Price: %s (discount price %s)\n", formatCents(product.PriceCents), formatCents(product.DiscountPriceCents))
	} else {
		fmt.Fprintf(&b, "Price: %s\n", formatCents(product.PriceCents))
	}
	fmt.Fprintf(&b, "In stock: %d\n", product.Quantity)

	return Reply{
		To:       to,
		Text:     b.String(),
		PhotoRef: product.ImageRef,
		Choices: [][]Choice{
			{
				{Label: "➖", Token: token(AdjustCmd{ProductID: product.ID, Direction: -1})},
				{Label: fmt.Sprintf("%d", quantity), Token: token(AddToCartCmd{ProductID: product.ID})},
				{Label: "➕", Token: token(AdjustCmd{ProductID: product.ID, Direction: 1})},
			},
			{{Label: fmt.Sprintf("🛒 Add %d to cart", quantity), Token: token(AddToCartCmd{ProductID: product.ID})}},
			{
				{Label: "◀️ Back", Token: token(NavigateCmd{Target: TargetCategories})},
				cartButton(cartCount),
			},
		},
	}
}

func cartLines(b *strings.Builder, items []model.CartItem) {
	for _, item := range items {
		fmt.Fprintf(b, "%s\n%d x %s = %s\n\n",
			item.Product.Title, item.Line.Quantity, formatCents(item.Product.PriceCents), formatCents(item.SubtotalCents()))
	}
}

func cartView(to model.UserID, items []model.CartItem, total int64) Reply {
	if len(items) == 0 {
		return Reply{
			To:      to,
			Text:    "🛒 Your cart is empty.",
			Choices: [][]Choice{{{Label: "◀️ Back", Token: token(NavigateCmd{Target: TargetCategories})}}},
		}
	}

	var b strings.Builder
	b.WriteString("🛒 Cart\n\n")
	cartLines(&b, items)
	fmt.Fprintf(&b, "Total: %s", formatCents(total))

	return Reply{
		To:   to,
		Text: b.String(),
		Choices: [][]Choice{
			{{Label: "❌ Clear cart", Token: token(NavigateCmd{Target: TargetClearCart})}},
			{{Label: "✅ Checkout", Token: token(NavigateCmd{Target: TargetCheckout})}},
			{{Label: "◀️ Back", Token: token(NavigateCmd{Target: TargetCategories})}},
		},
	}
}

func confirmationView(to model.UserID, items []model.CartItem, total int64, phone string) Reply {
	var b strings.Builder
	b.WriteString("Please confirm your order\n\n")
	cartLines(&b, items)
	fmt.Fprintf(&b, "Total: %s\nPhone: %s", formatCents(total), phone)

	return Reply{
		To:   to,
		Text: b.String(),
		Choices: [][]Choice{{
			{Label: "✅ Confirm", Token: token(NavigateCmd{Target: TargetConfirm})},
			{Label: "❌ Cancel", Token: token(NavigateCmd{Target: TargetCancel})},
		}},
	}
}

func historyView(to model.UserID, history *model.OrderHistory) Reply {
	if len(history.Orders) == 0 {
		return Reply{To: to, Text: "You have no orders yet."}
	}

	var b strings.Builder
	for _, summary := range history.Orders {
		fmt.Fprintf(&b, "Order #%s, %s, %s\n",
			shortID(summary.Order), summary.Order.CreatedAt.Format("2006-01-02 15:04"), summary.Order.Status)
		for _, line := range summary.Lines {
			fmt.Fprintf(&b, "  %s: %d x %s = %s\n",
				line.Title, line.Quantity, formatCents(line.UnitPriceCents), formatCents(line.SubtotalCents()))
		}
		fmt.Fprintf(&b, "  Subtotal: %s\n\n", formatCents(summary.LinesTotalCents()))
	}
	fmt.Fprintf(&b, "Grand total: %s", formatCents(history.TotalCents))
	return Reply{To: to, Text: b.String()}
}

func languageChoices(to model.UserID) Reply {
	choices := make([]Choice, 0, len(languageNames))
	for _, code := range []string{"uz", "en", "tur", "ru", "ko"} {
		choices = append(choices, Choice{Label: languageNames[code], Token: token(LanguageCmd{Code: code})})
	}
	return Reply{To: to, Text: "Choose a language 👇", Choices: grid(choices)}
}

// adminOrderNotice is the message an admin gets for a new pending order.
func adminOrderNotice(adminID model.UserID, summary model.OrderSummary) Reply {
	order := summary.Order
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 Order #%s\nCustomer: %d\nPhone: %s\n\n", shortID(order), order.UserID, order.PhoneNumber)
	for _, line := range summary.Lines {
		fmt.Fprintf(&b, "%s: %d x %s = %s\n",
			line.Title, line.Quantity, formatCents(line.UnitPriceCents), formatCents(line.SubtotalCents()))
	}
	fmt.Fprintf(&b, "\nTotal: %s", formatCents(order.TotalCents))

	decision := func(d model.Decision) string {
		return token(DecisionCmd{AdminID: adminID, UserID: order.UserID, OrderID: order.ID, Decision: d})
	}
	return Reply{
		To:   adminID,
		Text: b.String(),
		Choices: [][]Choice{{
			{Label: "✅ Accept", Token: decision(model.Accept)},
			{Label: "❌ Reject", Token: decision(model.Reject)},
		}},
	}
}

func customerDecisionNotice(order model.Order) Reply {
	text := fmt.Sprintf("✅ Your order #%s has been accepted. Total: %s", shortID(order), formatCents(order.TotalCents))
	if order.Status == model.Rejected {
		text = fmt.Sprintf("❌ Your order #%s has been rejected.", shortID(order))
	}
	return Reply{To: order.UserID, Text: text}
}
