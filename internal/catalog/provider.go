// Package catalog は商品一覧のキャッシュと変更通知の購読を管理するプロバイダを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/catalogo/internal/metrics"
	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/repository"
)

// loadErrorMessage は一覧取得に失敗した際に表示するメッセージ。
const loadErrorMessage = "Erro ao carregar produtos"

// ProductRepository はプロバイダが利用する商品リポジトリのインターフェース。
// 失敗は番兵値で表現される。
type ProductRepository interface {
	List(ctx context.Context) ([]model.Product, bool)
	GetByID(ctx context.Context, id int64) *model.Product
	Create(ctx context.Context, draft model.Product) *model.Product
	Update(ctx context.Context, id int64, patch model.ProductPatch) *model.Product
	Delete(ctx context.Context, id int64) bool
}

// SubscriptionState は変更通知購読の状態。
type SubscriptionState int

const (
	Unsubscribed SubscriptionState = iota
	Subscribing
	Subscribed
)

// String は状態名を返す。
func (s SubscriptionState) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	default:
		return "unsubscribed"
	}
}

// State はプロバイダの公開状態のスナップショット。
type State struct {
	Products     []model.Product
	Loading      bool
	Error        string
	Version      uint64
	RefreshedAt  time.Time
	Subscription SubscriptionState
}

// Config はプロバイダの設定。
type Config struct {
	// Debounce は変更通知をまとめる待機時間。0の場合は通知ごとに即時リフレッシュする。
	Debounce time.Duration
}

// Provider は商品一覧の唯一の共有キャッシュを保持する。
// キャッシュを書き換えるのはRefreshのみで、書き込み操作は成功後にRefreshを経由する。
type Provider struct {
	repo     ProductRepository
	feed     repository.ChangeFeed
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	debounce time.Duration

	mu          sync.Mutex
	products    []model.Product
	loading     bool
	errMsg      string
	issued      uint64
	settled     uint64
	settledCh   chan struct{}
	version     uint64
	refreshedAt time.Time

	session    uint64
	subState   SubscriptionState
	sub        repository.Subscription
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	watchers    map[int]chan struct{}
	nextWatcher int

	signalCh chan struct{}
}

// NewProvider はProviderを生成する。購読はInitで開始する。
func NewProvider(repo ProductRepository, feed repository.ChangeFeed, logger *slog.Logger, m metrics.MetricsCollector, cfg Config) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &Provider{
		repo:      repo,
		feed:      feed,
		logger:    logger,
		metrics:   m,
		debounce:  cfg.Debounce,
		products:  []model.Product{},
		settledCh: make(chan struct{}),
		watchers:  make(map[int]chan struct{}),
		signalCh:  make(chan struct{}, 1),
	}
}

// Init は既存の購読を解除した上で全種別の変更通知を1つ購読し、初回のリフレッシュを行う。
// 複数回呼び出しても購読が重複することはない。
func (p *Provider) Init(ctx context.Context) error {
	if err := p.teardown(); err != nil {
		p.logger.Warn("既存の購読の解除に失敗しました", slog.String("error", err.Error()))
	}

	p.mu.Lock()
	p.session++
	session := p.session
	p.subState = Subscribing
	p.mu.Unlock()

	loopCtx, cancel := context.WithCancel(context.Background())
	sub, err := p.feed.Subscribe(loopCtx, func(ev model.ChangeEvent) {
		p.onChange(session, ev)
	})
	if err != nil {
		cancel()
		p.mu.Lock()
		p.subState = Unsubscribed
		p.mu.Unlock()
		return fmt.Errorf("変更通知の購読に失敗しました: %w", err)
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.sub = sub
	p.subState = Subscribed
	p.loopCancel = cancel
	p.loopDone = done
	p.mu.Unlock()

	go p.run(loopCtx, done)

	p.logger.Info("変更通知の購読を開始しました", slog.Duration("debounce", p.debounce))
	p.Refresh(ctx)
	return nil
}

// Close は購読を解除し、Watchで払い出したチャネルを閉じる。
// Closeの開始以降に届いた通知は処理されない。
func (p *Provider) Close() error {
	err := p.teardown()

	p.mu.Lock()
	for id, ch := range p.watchers {
		close(ch)
		delete(p.watchers, id)
	}
	p.mu.Unlock()

	return err
}

func (p *Provider) teardown() error {
	p.mu.Lock()
	if p.sub == nil && p.loopCancel == nil {
		p.mu.Unlock()
		return nil
	}
	// セッションを進めることで旧購読のハンドラを無効化する。
	p.session++
	sub := p.sub
	cancel := p.loopCancel
	done := p.loopDone
	p.sub = nil
	p.loopCancel = nil
	p.loopDone = nil
	p.subState = Unsubscribed
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	select {
	case <-p.signalCh:
	default:
	}

	if sub != nil {
		if err := sub.Close(); err != nil {
			return fmt.Errorf("購読の解除に失敗しました: %w", err)
		}
	}
	p.logger.Info("変更通知の購読を解除しました")
	return nil
}

// onChange は通知の内容を解釈せず、リフレッシュ要求だけを積む。
// 要求は1スロットのチャネルで合流するため、連続した通知は1回のリフレッシュにまとまる。
func (p *Provider) onChange(session uint64, ev model.ChangeEvent) {
	p.mu.Lock()
	active := session == p.session && p.subState != Unsubscribed
	p.mu.Unlock()
	if !active {
		return
	}

	p.metrics.RecordNotification(string(ev.Op))
	p.logger.Debug("変更通知を受信しました",
		slog.String("op", string(ev.Op)),
		slog.Int64("product_id", ev.ProductID),
	)

	select {
	case p.signalCh <- struct{}{}:
	default:
	}
}

func (p *Provider) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.signalCh:
		}

		if p.debounce > 0 {
			timer := time.NewTimer(p.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			// 待機中に届いた通知はこのリフレッシュに含める
			select {
			case <-p.signalCh:
			default:
			}
		}

		p.Refresh(ctx)
	}
}

// Refresh はリポジトリから全件を取得し、キャッシュを丸ごと置き換える。
// 各呼び出しは世代番号を取り、最後に発行された世代の結果だけが反映される。
// 後続の世代に追い越された呼び出しは、その世代が確定するまで待ってから戻る。
// 最新世代がキャンセルされた場合はloadingを解除するがキャッシュは置き換えない。
func (p *Provider) Refresh(ctx context.Context) {
	p.mu.Lock()
	p.issued++
	gen := p.issued
	p.loading = true
	p.mu.Unlock()
	p.notifyWatchers()

	start := time.Now()
	products, ok := p.repo.List(ctx)
	elapsed := time.Since(start)

	p.mu.Lock()
	if gen != p.issued {
		p.metrics.RecordRefreshSuperseded()
		p.logger.Debug("後続のリフレッシュがあるため結果を破棄しました", slog.Uint64("generation", gen))
		p.waitSettled(ctx, gen)
		return
	}
	if ctx.Err() != nil {
		p.loading = false
		p.version++
		p.settle(gen)
		p.mu.Unlock()
		p.notifyWatchers()
		p.logger.Debug("リフレッシュがキャンセルされました", slog.Uint64("generation", gen))
		return
	}

	p.products = products
	p.loading = false
	if ok {
		p.errMsg = ""
	} else {
		p.errMsg = loadErrorMessage
	}
	p.version++
	p.refreshedAt = time.Now()
	p.settle(gen)
	count := len(products)
	p.mu.Unlock()

	p.metrics.RecordRefresh(elapsed, ok)
	p.metrics.SetCachedProducts(count)
	p.notifyWatchers()

	if ok {
		p.logger.Debug("商品一覧をリフレッシュしました",
			slog.Uint64("generation", gen),
			slog.Int("count", count),
			slog.Duration("duration", elapsed),
		)
	} else {
		p.logger.Warn("商品一覧のリフレッシュに失敗しました", slog.Uint64("generation", gen))
	}
}

// settle は世代genの確定を記録し、待機中の呼び出しを起こす。p.muを保持して呼ぶこと。
func (p *Provider) settle(gen uint64) {
	p.settled = gen
	close(p.settledCh)
	p.settledCh = make(chan struct{})
}

// waitSettled はgen以降の世代が確定するかctxが終了するまで待つ。
// p.muを保持した状態で呼び出し、解放した状態で戻る。
func (p *Provider) waitSettled(ctx context.Context, gen uint64) {
	for p.settled < gen {
		ch := p.settledCh
		p.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return
		}
		p.mu.Lock()
	}
	p.mu.Unlock()
}

// GetByID はリポジトリから直接商品を取得する。キャッシュには触れない。
func (p *Provider) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	product := p.repo.GetByID(ctx, id)
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}
	return product, nil
}

// Create は商品を作成し、成功した場合はリフレッシュしてから返す。
func (p *Provider) Create(ctx context.Context, draft model.Product) (*model.Product, error) {
	created := p.repo.Create(ctx, draft)
	if created == nil {
		return nil, model.NewSaveFailedError()
	}
	p.Refresh(ctx)
	return created, nil
}

// Update は商品を部分更新し、成功した場合はリフレッシュしてから返す。
func (p *Provider) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	updated := p.repo.Update(ctx, id, patch)
	if updated == nil {
		return nil, model.NewSaveFailedError()
	}
	p.Refresh(ctx)
	return updated, nil
}

// Delete は商品を削除し、成功した場合はリフレッシュしてから返す。
func (p *Provider) Delete(ctx context.Context, id int64) error {
	if !p.repo.Delete(ctx, id) {
		return model.NewDeleteFailedError()
	}
	p.Refresh(ctx)
	return nil
}

// Snapshot は現在の状態のコピーを返す。
func (p *Provider) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	products := make([]model.Product, len(p.products))
	copy(products, p.products)
	return State{
		Products:     products,
		Loading:      p.loading,
		Error:        p.errMsg,
		Version:      p.version,
		RefreshedAt:  p.refreshedAt,
		Subscription: p.subState,
	}
}

// Watch は状態が変化するたびに通知を受け取るチャネルを返す。
// チャネルはバッファ1で、連続した変化は1回の通知にまとまる。
// 返された関数で監視を解除する。Closeされた場合はチャネルが閉じられる。
func (p *Provider) Watch() (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextWatcher
	p.nextWatcher++
	ch := make(chan struct{}, 1)
	p.watchers[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.watchers[id]; ok {
			close(c)
			delete(p.watchers, id)
		}
	}
}

func (p *Provider) notifyWatchers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
