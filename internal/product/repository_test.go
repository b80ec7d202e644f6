package product

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/catalogo/internal/model"
)

// --- モック定義 ---

// mockStore はProductStoreのテスト用モック。
type mockStore struct {
	listFunc     func(ctx context.Context) ([]model.Product, error)
	findByIDFunc func(ctx context.Context, id int64) (*model.Product, error)
	insertFunc   func(ctx context.Context, p *model.Product) (*model.Product, error)
	updateFunc   func(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	deleteFunc   func(ctx context.Context, id int64) (bool, error)
}

func (m *mockStore) List(ctx context.Context) ([]model.Product, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStore) Insert(ctx context.Context, p *model.Product) (*model.Product, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, p)
	}
	return p, nil
}

func (m *mockStore) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockStore) Delete(ctx context.Context, id int64) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return true, nil
}

// mockMetrics はストア失敗の記録だけを保持する。
type mockMetrics struct {
	failures []string
}

func (m *mockMetrics) RecordRefresh(time.Duration, bool) {}
func (m *mockMetrics) RecordRefreshSuperseded()          {}
func (m *mockMetrics) RecordNotification(string)         {}
func (m *mockMetrics) RecordStoreFailure(op string)      { m.failures = append(m.failures, op) }
func (m *mockMetrics) RecordHTTPStatus(int)              {}
func (m *mockMetrics) RecordImageFetch(bool)             {}
func (m *mockMetrics) SetCachedProducts(int)             {}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestList_ReturnsProductsInStoreOrder(t *testing.T) {
	store := &mockStore{
		listFunc: func(ctx context.Context) ([]model.Product, error) {
			return []model.Product{{ID: 3, Titulo: "C"}, {ID: 2, Titulo: "B"}, {ID: 1, Titulo: "A"}}, nil
		},
	}
	repo := NewRepository(store, nil, nil)

	products, ok := repo.List(context.Background())
	if !ok {
		t.Fatal("expected ok")
	}
	if len(products) != 3 || products[0].ID != 3 || products[2].ID != 1 {
		t.Errorf("unexpected products: %+v", products)
	}
}

func TestList_StoreFailure_ReturnsEmptyAndLogs(t *testing.T) {
	var buf bytes.Buffer
	m := &mockMetrics{}
	store := &mockStore{
		listFunc: func(ctx context.Context) ([]model.Product, error) {
			return nil, errors.New("connection refused")
		},
	}
	repo := NewRepository(store, newTestLogger(&buf), m)

	products, ok := repo.List(context.Background())
	if ok {
		t.Error("expected ok=false on store failure")
	}
	if products == nil || len(products) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", products)
	}
	if len(m.failures) != 1 || m.failures[0] != "list" {
		t.Errorf("failures = %v, want [list]", m.failures)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v\nraw: %s", err, buf.String())
	}
	if entry["level"] != "ERROR" || entry["op"] != "list" {
		t.Errorf("unexpected log entry: %v", entry)
	}
	if !strings.Contains(entry["error"].(string), "connection refused") {
		t.Errorf("log should include the store error, got %v", entry["error"])
	}
}

func TestList_CanceledIsNotAStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	m := &mockMetrics{}
	store := &mockStore{
		listFunc: func(ctx context.Context) ([]model.Product, error) {
			return nil, fmt.Errorf("failed to list products: %w", context.Canceled)
		},
	}
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := NewRepository(store, logger, m)

	products, ok := repo.List(context.Background())
	if ok || len(products) != 0 {
		t.Errorf("List() = %v, %v, want empty and false", products, ok)
	}
	if len(m.failures) != 0 {
		t.Errorf("failures = %v, want none", m.failures)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v\nraw: %s", err, buf.String())
	}
	if entry["level"] != "DEBUG" || entry["op"] != "list" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestList_NilFromStoreBecomesEmptySlice(t *testing.T) {
	repo := NewRepository(&mockStore{}, nil, nil)

	products, ok := repo.List(context.Background())
	if !ok || products == nil {
		t.Errorf("List() = %#v, %v; want empty slice, true", products, ok)
	}
}

func TestGetByID_NotFoundAndFailureBothNil(t *testing.T) {
	var buf bytes.Buffer
	m := &mockMetrics{}
	store := &mockStore{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Product, error) {
			if id == 1 {
				return nil, errors.New("timeout")
			}
			return nil, nil
		},
	}
	repo := NewRepository(store, newTestLogger(&buf), m)

	if got := repo.GetByID(context.Background(), 1); got != nil {
		t.Errorf("failure should return nil, got %+v", got)
	}
	if got := repo.GetByID(context.Background(), 2); got != nil {
		t.Errorf("not found should return nil, got %+v", got)
	}
	if len(m.failures) != 1 {
		t.Errorf("only the store failure should be recorded, got %v", m.failures)
	}
}

func TestCreate_ClearsDraftIDAndReturnsStored(t *testing.T) {
	now := time.Now()
	var received *model.Product
	store := &mockStore{
		insertFunc: func(ctx context.Context, p *model.Product) (*model.Product, error) {
			received = p
			stored := *p
			stored.ID = 13
			stored.DataCadastro = now
			return &stored, nil
		},
	}
	repo := NewRepository(store, nil, nil)

	got := repo.Create(context.Background(), model.Product{ID: 99, Titulo: "Suco de Laranja"})
	if got == nil {
		t.Fatal("expected created product")
	}
	if received.ID != 0 || received.IsPersisted() {
		t.Errorf("draft id should be cleared before insert, got %d", received.ID)
	}
	if got.ID != 13 || !got.DataCadastro.Equal(now) {
		t.Errorf("unexpected created product: %+v", got)
	}
}

func TestCreate_StoreFailureReturnsNil(t *testing.T) {
	m := &mockMetrics{}
	store := &mockStore{
		insertFunc: func(ctx context.Context, p *model.Product) (*model.Product, error) {
			return nil, errors.New("permission denied")
		},
	}
	repo := NewRepository(store, newTestLogger(&bytes.Buffer{}), m)

	if got := repo.Create(context.Background(), model.Product{Titulo: "X"}); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if len(m.failures) != 1 || m.failures[0] != "create" {
		t.Errorf("failures = %v, want [create]", m.failures)
	}
}

func TestUpdate_PassesPatchThrough(t *testing.T) {
	fabricante := "Nova"
	store := &mockStore{
		updateFunc: func(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
			if patch.Titulo != nil {
				t.Error("titulo should not be part of the patch")
			}
			p := patch.Apply(model.Product{ID: id, Titulo: "Café", Fabricante: "Antiga"})
			return &p, nil
		},
	}
	repo := NewRepository(store, nil, nil)

	got := repo.Update(context.Background(), 4, model.ProductPatch{Fabricante: &fabricante})
	if got == nil || got.Fabricante != "Nova" || got.Titulo != "Café" {
		t.Errorf("unexpected update result: %+v", got)
	}
}

func TestUpdate_FailureReturnsNil(t *testing.T) {
	m := &mockMetrics{}
	store := &mockStore{
		updateFunc: func(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
			return nil, errors.New("boom")
		},
	}
	repo := NewRepository(store, newTestLogger(&bytes.Buffer{}), m)

	if got := repo.Update(context.Background(), 4, model.ProductPatch{}); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if len(m.failures) != 1 || m.failures[0] != "update" {
		t.Errorf("failures = %v, want [update]", m.failures)
	}
}

func TestDelete_AcknowledgedEvenWhenAbsent(t *testing.T) {
	store := &mockStore{
		deleteFunc: func(ctx context.Context, id int64) (bool, error) {
			return false, nil
		},
	}
	repo := NewRepository(store, newTestLogger(&bytes.Buffer{}), nil)

	if !repo.Delete(context.Background(), 42) {
		t.Error("delete of an absent record should be acknowledged")
	}
}

func TestDelete_StoreFailureReturnsFalse(t *testing.T) {
	m := &mockMetrics{}
	store := &mockStore{
		deleteFunc: func(ctx context.Context, id int64) (bool, error) {
			return false, errors.New("network down")
		},
	}
	repo := NewRepository(store, newTestLogger(&bytes.Buffer{}), m)

	if repo.Delete(context.Background(), 42) {
		t.Error("expected false on store failure")
	}
	if len(m.failures) != 1 || m.failures[0] != "delete" {
		t.Errorf("failures = %v, want [delete]", m.failures)
	}
}
