package handler

import (
	"context"

	"github.com/hitoshi/catalogo/internal/catalog"
	"github.com/hitoshi/catalogo/internal/media"
	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/security"
	"github.com/hitoshi/catalogo/internal/view"
)

// --- モック定義 ---

// mockProvider はCatalogProviderのテスト用モック。
type mockProvider struct {
	state       catalog.State
	refreshFn   func(ctx context.Context)
	getByIDFn   func(ctx context.Context, id int64) (*model.Product, error)
	createFn    func(ctx context.Context, draft model.Product) (*model.Product, error)
	updateFn    func(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	deleteFn    func(ctx context.Context, id int64) error
	watchCh     chan struct{}
	refreshes   int
	createCalls int
	updateCalls int
	deleteCalls int
}

func (m *mockProvider) Snapshot() catalog.State { return m.state }

func (m *mockProvider) Refresh(ctx context.Context) {
	m.refreshes++
	if m.refreshFn != nil {
		m.refreshFn(ctx)
	}
}

func (m *mockProvider) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.NewProductNotFoundError(id)
}

func (m *mockProvider) Create(ctx context.Context, draft model.Product) (*model.Product, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, draft)
	}
	draft.ID = 1
	return &draft, nil
}

func (m *mockProvider) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, model.NewSaveFailedError()
}

func (m *mockProvider) Delete(ctx context.Context, id int64) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProvider) Watch() (<-chan struct{}, func()) {
	if m.watchCh == nil {
		m.watchCh = make(chan struct{}, 1)
	}
	return m.watchCh, func() {}
}

// mockImageFetcher はImageFetcherのテスト用モック。
type mockImageFetcher struct {
	fetchFn func(ctx context.Context, rawURL string) (*media.Image, error)
	urls    []string
}

func (m *mockImageFetcher) Fetch(ctx context.Context, rawURL string) (*media.Image, error) {
	m.urls = append(m.urls, rawURL)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, rawURL)
	}
	return &media.Image{Data: []byte("img"), ContentType: "image/jpeg"}, nil
}

// newFormBuilder は実際のサニタイザとURL検証を使うFormBuilderを返す。
func newFormBuilder() *view.FormBuilder {
	return view.NewFormBuilder(security.NewMarkupGuard(), security.NewImageURLGuard())
}
