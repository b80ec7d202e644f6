package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/catalogo/internal/model"
)

// MemoryProductStore はプロセス内メモリに商品を保持するストア。
// PostgreSQLを用意できないローカル実行やテストで使用する。
// 変更時には購読者へ同期的に通知する。
type MemoryProductStore struct {
	mu       sync.Mutex
	products map[int64]model.Product
	nextID   int64
	now      func() time.Time

	subMu    sync.Mutex
	handlers map[int]ChangeHandler
	nextSub  int
}

// NewMemoryProductStore はMemoryProductStoreを生成する。
func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products: make(map[int64]model.Product),
		nextID:   1,
		now:      time.Now,
		handlers: make(map[int]ChangeHandler),
	}
}

// List は全商品をIDの降順で取得する。
func (s *MemoryProductStore) List(ctx context.Context) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })
	return products, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (s *MemoryProductStore) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Insert は商品を追加し、IDと登録日時を採番する。
func (s *MemoryProductStore) Insert(ctx context.Context, product *model.Product) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	p := *product
	p.ID = s.nextID
	p.DataCadastro = s.now()
	s.nextID++
	s.products[p.ID] = p
	s.mu.Unlock()

	s.publish(model.ChangeEvent{Op: model.ChangeOpInsert, ProductID: p.ID})
	return &p, nil
}

// Update は指定されたフィールドのみを更新する。対象が存在しない場合はnilを返す。
func (s *MemoryProductStore) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	current, ok := s.products[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	updated := patch.Apply(current)
	s.products[id] = updated
	s.mu.Unlock()

	if !patch.IsEmpty() {
		s.publish(model.ChangeEvent{Op: model.ChangeOpUpdate, ProductID: id})
	}
	return &updated, nil
}

// Delete は指定IDの商品を削除する。
func (s *MemoryProductStore) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	_, ok := s.products[id]
	delete(s.products, id)
	s.mu.Unlock()

	if ok {
		s.publish(model.ChangeEvent{Op: model.ChangeOpDelete, ProductID: id})
	}
	return ok, nil
}

// PingContext は常に成功する。
func (s *MemoryProductStore) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Subscribe は変更通知の購読を開始する。
func (s *MemoryProductStore) Subscribe(ctx context.Context, handler ChangeHandler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.handlers[id] = handler
	return &memorySubscription{store: s, id: id}, nil
}

// SubscriberCount は現在の購読数を返す。
func (s *MemoryProductStore) SubscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.handlers)
}

func (s *MemoryProductStore) publish(event model.ChangeEvent) {
	s.subMu.Lock()
	handlers := make([]ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.subMu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

type memorySubscription struct {
	store *MemoryProductStore
	id    int
}

func (m *memorySubscription) Close() error {
	m.store.subMu.Lock()
	defer m.store.subMu.Unlock()
	delete(m.store.handlers, m.id)
	return nil
}

var (
	_ ProductStore = (*MemoryProductStore)(nil)
	_ ChangeFeed   = (*MemoryProductStore)(nil)
	_ Pinger       = (*MemoryProductStore)(nil)
)
