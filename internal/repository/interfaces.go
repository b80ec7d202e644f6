// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/catalogo/internal/model"
)

// ProductChangeChannel はproductsテーブルの変更通知を配信するチャネル名。
// マイグレーションで作成するトリガーと一致させること。
const ProductChangeChannel = "produtos_changes"

// ProductStore は商品データの永続化インターフェース。
type ProductStore interface {
	// List は全商品をIDの降順で取得する。
	List(ctx context.Context) ([]model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Product, error)

	// Insert は商品を追加し、採番されたIDと登録日時を含む行を返す。
	Insert(ctx context.Context, product *model.Product) (*model.Product, error)

	// Update は指定されたフィールドのみを更新し、更新後の行を返す。
	// 対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)

	// Delete は指定IDの商品を削除する。行が削除された場合にtrueを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// ChangeHandler は変更通知を受け取るコールバック。
type ChangeHandler func(event model.ChangeEvent)

// Subscription は変更通知の購読を表す。
type Subscription interface {
	// Close は購読を解除する。複数回呼び出しても安全。
	Close() error
}

// ChangeFeed はproductsテーブルの変更通知の購読インターフェース。
type ChangeFeed interface {
	// Subscribe は全種別の変更通知をhandlerに配信する購読を開始する。
	Subscribe(ctx context.Context, handler ChangeHandler) (Subscription, error)
}

// Pinger はストアへの疎通確認インターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}
