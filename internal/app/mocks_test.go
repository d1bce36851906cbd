package app_test

import (
	"context"
	"io"

	"foodtracker/internal/domain"
)

type mockProductRepo struct {
	listFn   func(ctx context.Context) ([]domain.Product, error)
	getFn    func(ctx context.Context, id int64) (*domain.Product, error)
	createFn func(ctx context.Context, p *domain.Product) (int64, error)
	deleteFn func(ctx context.Context, id int64) error
	searchFn func(ctx context.Context, query string) ([]domain.Product, error)
}

func (m *mockProductRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockProductRepo) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockProductRepo) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return 1, nil
}

func (m *mockProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProductRepo) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, nil
}

type mockFoodDB struct {
	searchFn func(ctx context.Context, query string, pageSize int) ([]domain.ExternalProduct, error)
}

func (m *mockFoodDB) Search(ctx context.Context, query string, pageSize int) ([]domain.ExternalProduct, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, pageSize)
	}
	return nil, nil
}

type mockImageStore struct {
	saveFn   func(ctx context.Context, filename string, r io.Reader, contentType string) (string, error)
	deleteFn func(ctx context.Context, ref string) error
}

func (m *mockImageStore) Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, filename, r, contentType)
	}
	return "static/uploads/" + filename, nil
}

func (m *mockImageStore) Delete(ctx context.Context, ref string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	return nil
}
