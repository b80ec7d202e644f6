package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/catalogo/internal/model"
)

// listenerPingInterval は通知が無い間に接続の生存確認を行う間隔。
const listenerPingInterval = 90 * time.Second

// PostgresChangeFeed はLISTEN/NOTIFYを使用した変更通知フィード。
type PostgresChangeFeed struct {
	dsn          string
	minReconnect time.Duration
	maxReconnect time.Duration
	logger       *slog.Logger
}

// NewPostgresChangeFeed はPostgresChangeFeedを生成する。
func NewPostgresChangeFeed(dsn string, minReconnect, maxReconnect time.Duration, logger *slog.Logger) *PostgresChangeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresChangeFeed{
		dsn:          dsn,
		minReconnect: minReconnect,
		maxReconnect: maxReconnect,
		logger:       logger,
	}
}

// notifyPayload はトリガーがpg_notifyで送るJSONペイロード。
type notifyPayload struct {
	Op string `json:"op"`
	ID int64  `json:"id"`
}

// Subscribe はProductChangeChannelをLISTENし、通知ごとにhandlerを呼び出す。
// 接続断からの再接続時には取りこぼしを補うためRESYNCイベントを配信する。
func (f *PostgresChangeFeed) Subscribe(ctx context.Context, handler ChangeHandler) (Subscription, error) {
	listener := pq.NewListener(f.dsn, f.minReconnect, f.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			f.logger.Warn("変更通知チャネルへの接続に失敗しました", slog.String("error", errString(err)))
		case pq.ListenerEventDisconnected:
			f.logger.Warn("変更通知チャネルが切断されました", slog.String("error", errString(err)))
		case pq.ListenerEventReconnected:
			f.logger.Info("変更通知チャネルに再接続しました")
		}
	})

	if err := listener.Listen(ProductChangeChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("変更通知チャネルの購読に失敗しました: %w", err)
	}

	sub := newPGSubscription(listener, listenerPingInterval)
	go sub.loop(ctx, handler, f.logger)

	f.logger.Info("変更通知チャネルを購読しました", slog.String("channel", ProductChangeChannel))
	return sub, nil
}

// notificationListener は購読ループが必要とする*pq.Listenerの操作。
type notificationListener interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type pgSubscription struct {
	listener     notificationListener
	pingInterval time.Duration
	stopCh       chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
	closeErr     error
}

func newPGSubscription(listener notificationListener, pingInterval time.Duration) *pgSubscription {
	return &pgSubscription{
		listener:     listener,
		pingInterval: pingInterval,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (s *pgSubscription) loop(ctx context.Context, handler ChangeHandler, logger *slog.Logger) {
	defer close(s.done)

	notify := s.listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case n, ok := <-notify:
			if !ok {
				return
			}
			// nilは再接続を意味する。切断中の変更は届かないため再同期を要求する。
			if n == nil {
				handler(model.ChangeEvent{Op: model.ChangeOpResync})
				continue
			}
			handler(parseNotification(n, logger))
		case <-time.After(s.pingInterval):
			go func() {
				if err := s.listener.Ping(); err != nil {
					logger.Warn("変更通知チャネルの生存確認に失敗しました", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

// Close は購読を解除する。ループの終了を待ってから戻る。
func (s *pgSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.done
		if err := s.listener.Close(); err != nil {
			s.closeErr = fmt.Errorf("変更通知チャネルのクローズに失敗しました: %w", err)
		}
	})
	return s.closeErr
}

// parseNotification は通知ペイロードをChangeEventに変換する。
// 解釈できないペイロードも変更として扱う。
func parseNotification(n *pq.Notification, logger *slog.Logger) model.ChangeEvent {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(n.Extra), &payload); err != nil {
		logger.Debug("通知ペイロードを解釈できませんでした",
			slog.String("channel", n.Channel),
			slog.String("error", err.Error()),
		)
		return model.ChangeEvent{Op: model.ChangeOpResync}
	}
	return model.ChangeEvent{Op: model.ChangeOp(payload.Op), ProductID: payload.ID}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

var _ ChangeFeed = (*PostgresChangeFeed)(nil)
