// Package product はストアへのアクセスを商品単位の操作に変換するリポジトリを提供する。
// ストアのエラーは境界の外へ返さず、構造化ログとメトリクスに記録した上で
// nil / false / 空スライスといった番兵値に正規化する。
package product

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/catalogo/internal/metrics"
	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/repository"
)

// Repository は商品の取得・作成・更新・削除を提供する。
// リトライやタイムアウトの追加は行わず、各失敗はその呼び出しで確定する。
type Repository struct {
	store   repository.ProductStore
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewRepository はRepositoryを生成する。
func NewRepository(store repository.ProductStore, logger *slog.Logger, m metrics.MetricsCollector) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &Repository{store: store, logger: logger, metrics: m}
}

// List は全商品をIDの降順で返す。失敗時は空スライスとfalseを返す。
func (r *Repository) List(ctx context.Context) ([]model.Product, bool) {
	products, err := r.store.List(ctx)
	if err != nil {
		r.fail(ctx, "list", err)
		return []model.Product{}, false
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, true
}

// GetByID は指定IDの商品を返す。未検出とストア失敗はどちらもnilになる。
func (r *Repository) GetByID(ctx context.Context, id int64) *model.Product {
	p, err := r.store.FindByID(ctx, id)
	if err != nil {
		r.fail(ctx, "get", err, slog.Int64("product_id", id))
		return nil
	}
	return p
}

// Create はドラフトを保存し、IDと登録日時が付与された商品を返す。失敗時はnilを返す。
func (r *Repository) Create(ctx context.Context, draft model.Product) *model.Product {
	if draft.IsPersisted() {
		r.logger.DebugContext(ctx, "ドラフトのIDを無視して新規作成します", slog.Int64("product_id", draft.ID))
		draft.ID = 0
	}
	p, err := r.store.Insert(ctx, &draft)
	if err != nil {
		r.fail(ctx, "create", err, slog.String("titulo", draft.Titulo))
		return nil
	}
	return p
}

// Update は指定されたフィールドのみを更新した商品を返す。
// 対象が存在しない場合とストア失敗はnilになる。
func (r *Repository) Update(ctx context.Context, id int64, patch model.ProductPatch) *model.Product {
	p, err := r.store.Update(ctx, id, patch)
	if err != nil {
		r.fail(ctx, "update", err, slog.Int64("product_id", id))
		return nil
	}
	if p == nil {
		r.logger.WarnContext(ctx, "更新対象の商品が見つかりません", slog.Int64("product_id", id))
	}
	return p
}

// Delete は指定IDの商品を削除する。ストアがコマンドを受理した場合にtrueを返す。
// 既に存在しない商品の削除も受理として扱う。
func (r *Repository) Delete(ctx context.Context, id int64) bool {
	deleted, err := r.store.Delete(ctx, id)
	if err != nil {
		r.fail(ctx, "delete", err, slog.Int64("product_id", id))
		return false
	}
	if !deleted {
		r.logger.InfoContext(ctx, "削除対象の商品は既に存在しません", slog.Int64("product_id", id))
	}
	return true
}

// fail はストア失敗を記録する。呼び出し元による取り消しはストア障害として数えない。
func (r *Repository) fail(ctx context.Context, op string, err error, attrs ...any) {
	args := append([]any{slog.String("op", op), slog.String("error", err.Error())}, attrs...)
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		r.logger.DebugContext(ctx, "ストア操作が取り消されました", args...)
		return
	}
	r.metrics.RecordStoreFailure(op)
	r.logger.ErrorContext(ctx, "ストア操作に失敗しました", args...)
}
