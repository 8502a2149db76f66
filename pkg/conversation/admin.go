package conversation

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
	"chatshop/pkg/domain/service"
)

// onAdminInput advances the product and category forms. A value that fails
// validation is reported and the step is kept.
func (t *turn) onAdminInput() error {
	text := t.ev.Text

	switch t.state.Step {
	case StepCategoryName:
		name, err := service.ParseName(text)
		if err != nil {
			t.say("The name must not be empty or consist of digits only. Send the category name again.")
			return nil
		}
		var category *model.Category
		err = t.commit(func() (err error) {
			category, err = t.catalog.CreateCategory(t.ctx, name)
			return err
		})
		if model.IsValidation(err) {
			t.say("The name must not be empty or consist of digits only. Send the category name again.")
			return nil
		}
		if err != nil {
			return err
		}
		t.sayWithMenu(fmt.Sprintf("Category %q created.", category.Name))

	case StepTitle:
		title, err := service.ParseName(text)
		if err != nil {
			t.say("The title must not be empty or consist of digits only. Send the title again.")
			return nil
		}
		t.state.Set(keyTitle, title)
		t.state.Step = StepImage
		t.say("Send the product photo.")

	case StepImage:
		if t.ev.PhotoRef == "" {
			t.say("Please send a photo.")
			return nil
		}
		t.state.Set(keyImage, t.ev.PhotoRef)
		t.state.Step = StepDescription
		t.say("Send the product description.")

	case StepDescription:
		description, err := service.ParseText(text)
		if err != nil {
			t.say("The description must not be empty. Send it again.")
			return nil
		}
		t.state.Set(keyDescription, description)
		t.state.Step = StepPrice
		t.say("Send the price, for example 120.50.")

	case StepPrice:
		cents, err := service.ParsePrice(text)
		if err != nil {
			t.say("The price must be a non-negative number. Send the price again.")
			return nil
		}
		t.state.Set(keyPrice, strconv.FormatInt(cents, 10))
		t.state.Step = StepDiscountPrice
		t.say("Send the discount price, or 0 for none.")

	case StepDiscountPrice:
		cents, err := service.ParsePrice(text)
		if err != nil {
			t.say("The discount price must be a non-negative number. Send it again.")
			return nil
		}
		t.state.Set(keyDiscount, strconv.FormatInt(cents, 10))
		t.state.Step = StepQuantity
		t.say("Send the quantity in stock.")

	case StepQuantity:
		quantity, err := service.ParseQuantity(text)
		if err != nil {
			t.say("The quantity must be a non-negative whole number. Send it again.")
			return nil
		}
		categories, err := t.catalog.Categories(t.ctx)
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			t.state.Reset()
			t.sayWithMenu("There are no categories yet. Create a category first.")
			return nil
		}
		t.state.Set(keyQuantity, strconv.Itoa(quantity))
		t.state.Step = StepCategoryChoice
		t.reply(pickCategory(t.ev.UserID, "Choose the category of the product 👇", categories))

	case StepCategoryChoice, StepCategoryDeletion, StepProductDeletion:
		t.say("Please choose from the list above, or send /cancel.")
	}
	return nil
}

func pickCategory(to model.UserID, text string, categories []model.Category) Reply {
	choices := make([]Choice, 0, len(categories))
	for _, category := range categories {
		choices = append(choices, Choice{Label: category.Name, Token: token(CategoryCmd{CategoryID: category.ID})})
	}
	return Reply{To: to, Text: text, Choices: grid(choices)}
}

func pickProduct(to model.UserID, text string, products []model.Product) Reply {
	choices := make([]Choice, 0, len(products))
	for _, product := range products {
		choices = append(choices, Choice{Label: product.Title, Token: token(ProductCmd{ProductID: product.ID})})
	}
	return Reply{To: to, Text: text, Choices: grid(choices)}
}

// draft rebuilds the product form from the state. Values were validated
// when they were collected.
func (t *turn) draft(categoryID uuid.UUID) model.ProductDraft {
	price, _ := strconv.ParseInt(t.state.Get(keyPrice), 10, 64)
	discount, _ := strconv.ParseInt(t.state.Get(keyDiscount), 10, 64)
	quantity, _ := strconv.Atoi(t.state.Get(keyQuantity))
	return model.ProductDraft{
		Title:              t.state.Get(keyTitle),
		ImageRef:           t.state.Get(keyImage),
		Description:        t.state.Get(keyDescription),
		PriceCents:         price,
		DiscountPriceCents: discount,
		Quantity:           quantity,
		CategoryID:         categoryID,
	}
}

func (t *turn) finishProduct(categoryID uuid.UUID) error {
	if !t.requireAdmin() {
		return nil
	}

	category, err := t.catalog.Category(t.ctx, categoryID)
	if model.IsNotFound(err) {
		return t.repickCategory("That category no longer exists. Choose another one 👇")
	}
	if err != nil {
		return err
	}

	draft := t.draft(categoryID)
	var product *model.Product
	err = t.commit(func() (err error) {
		product, err = t.catalog.CreateProduct(t.ctx, draft)
		return err
	})
	if model.IsNotFound(err) {
		return t.repickCategory("That category no longer exists. Choose another one 👇")
	}
	if model.IsValidation(err) {
		t.state.Reset()
		t.sayWithMenu("The product form is incomplete, please start again.")
		return nil
	}
	if err != nil {
		return err
	}
	t.sayWithMenu(fmt.Sprintf("Product %q created in %q.", product.Title, category.Name))
	return nil
}

func (t *turn) repickCategory(text string) error {
	categories, err := t.catalog.Categories(t.ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		t.state.Reset()
		t.sayWithMenu("There are no categories left.")
		return nil
	}
	t.reply(pickCategory(t.ev.UserID, text, categories))
	return nil
}

func (t *turn) pickCategoryToDelete() error {
	categories, err := t.catalog.Categories(t.ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		t.state.Reset()
		t.sayWithMenu("There are no categories to delete.")
		return nil
	}
	t.state.Step = StepCategoryDeletion
	t.reply(pickCategory(t.ev.UserID, "Choose the category to delete. Its products are deleted too.", categories))
	return nil
}

func (t *turn) pickProductToDelete() error {
	products, err := t.catalog.Products(t.ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		t.state.Reset()
		t.sayWithMenu("There are no products to delete.")
		return nil
	}
	t.state.Step = StepProductDeletion
	t.reply(pickProduct(t.ev.UserID, "Choose the product to delete.", products))
	return nil
}

func (t *turn) deleteCategory(id uuid.UUID) error {
	if !t.requireAdmin() {
		return nil
	}
	var category *model.Category
	err := t.commit(func() (err error) {
		category, err = t.catalog.DeleteCategory(t.ctx, id)
		return err
	})
	if model.IsNotFound(err) {
		t.notice("That category no longer exists.")
		return t.pickCategoryToDelete()
	}
	if err != nil {
		return err
	}
	t.sayWithMenu(fmt.Sprintf("Category %q deleted with its products.", category.Name))
	return nil
}

func (t *turn) deleteProduct(id uuid.UUID) error {
	if !t.requireAdmin() {
		return nil
	}
	var product *model.Product
	err := t.commit(func() (err error) {
		product, err = t.catalog.DeleteProduct(t.ctx, id)
		return err
	})
	if model.IsNotFound(err) {
		t.notice("That product no longer exists.")
		return t.pickProductToDelete()
	}
	if err != nil {
		return err
	}
	t.sayWithMenu(fmt.Sprintf("Product %q deleted.", product.Title))
	return nil
}
