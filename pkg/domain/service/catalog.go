package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chatshop/pkg/domain/model"
)

const searchLimit = 50

type CatalogService interface {
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	CreateProduct(ctx context.Context, draft model.ProductDraft) (*model.Product, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) (*model.Category, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error)

	Categories(ctx context.Context) ([]model.Category, error)
	Category(ctx context.Context, categoryID uuid.UUID) (*model.Category, error)
	Products(ctx context.Context) ([]model.Product, error)
	ProductsInCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Product, error)
	Product(ctx context.Context, productID uuid.UUID) (*model.Product, error)
	Search(ctx context.Context, query string) ([]model.Product, error)
}

func NewCatalogService(categories model.CategoryRepository, products model.ProductRepository, dispatcher EventDispatcher) CatalogService {
	return &catalogService{categories: categories, products: products, dispatcher: dispatcher}
}

type catalogService struct {
	categories model.CategoryRepository
	products   model.ProductRepository
	dispatcher EventDispatcher
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	name, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	categoryID, err := s.categories.NextID()
	if err != nil {
		return nil, err
	}

	category := &model.Category{
		ID:        categoryID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.CategoryCreated{CategoryID: categoryID, Name: name})
	return category, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, draft model.ProductDraft) (*model.Product, error) {
	title, err := ParseName(draft.Title)
	if err != nil {
		return nil, err
	}
	if draft.PriceCents < 0 || draft.DiscountPriceCents < 0 {
		return nil, model.ErrInvalidPrice
	}
	if draft.Quantity < 0 {
		return nil, model.ErrInvalidQuantity
	}
	if _, err := s.categories.Find(ctx, draft.CategoryID); err != nil {
		return nil, err
	}

	productID, err := s.products.NextID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &model.Product{
		ID:                 productID,
		CategoryID:         draft.CategoryID,
		Title:              title,
		Description:        draft.Description,
		ImageRef:           draft.ImageRef,
		PriceCents:         draft.PriceCents,
		DiscountPriceCents: draft.DiscountPriceCents,
		Quantity:           draft.Quantity,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductCreated{ProductID: productID, CategoryID: draft.CategoryID, Title: title})
	return product, nil
}

// DeleteCategory removes the category together with its products.
func (s *catalogService) DeleteCategory(ctx context.Context, categoryID uuid.UUID) (*model.Category, error) {
	category, err := s.categories.Find(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Delete(ctx, categoryID); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.CategoryDeleted{CategoryID: categoryID})
	return category, nil
}

// DeleteProduct removes the product; cart lines and order lines referencing it go with it.
func (s *catalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	product, err := s.products.Find(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductDeleted{ProductID: productID})
	return product, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *catalogService) Category(ctx context.Context, categoryID uuid.UUID) (*model.Category, error) {
	return s.categories.Find(ctx, categoryID)
}

func (s *catalogService) Products(ctx context.Context) ([]model.Product, error) {
	return s.products.FindAll(ctx)
}

func (s *catalogService) ProductsInCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Product, error) {
	return s.products.FindBy(ctx, model.ProductCategoryID, categoryID)
}

func (s *catalogService) Product(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	return s.products.Find(ctx, productID)
}

func (s *catalogService) Search(ctx context.Context, query string) ([]model.Product, error) {
	return s.products.Search(ctx, query, searchLimit)
}
