// Package resync は変更通知の取りこぼしに備えた定期的な全件リフレッシュを提供する。
package resync

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/catalogo/internal/catalog"
)

// Refresher はリフレッシュ対象のキャッシュ。*catalog.Providerが満たす。
type Refresher interface {
	Refresh(ctx context.Context)
	Snapshot() catalog.State
}

// Job は一定間隔でプロバイダのリフレッシュを要求する。
// 変更通知の接続が切れている間に発生した変更もこのジョブで追いつく。
type Job struct {
	refresher Refresher
	logger    *slog.Logger
	interval  time.Duration
}

// NewJob はJobを生成する。intervalが0以下の場合、Startは何もせずに戻る。
func NewJob(refresher Refresher, logger *slog.Logger, interval time.Duration) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		refresher: refresher,
		logger:    logger,
		interval:  interval,
	}
}

// Start はコンテキストがキャンセルされるまでinterval毎にRunOnceを実行する。
// 初回のリフレッシュはプロバイダのInitが行うため、起動直後には実行しない。
func (j *Job) Start(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("定期リフレッシュは無効です")
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("定期リフレッシュを開始しました", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("定期リフレッシュを停止しました")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce はリフレッシュを1回実行し、結果をログに記録する。
func (j *Job) RunOnce(ctx context.Context) {
	start := time.Now()
	j.refresher.Refresh(ctx)
	state := j.refresher.Snapshot()

	if state.Error != "" {
		j.logger.Warn("定期リフレッシュで読み込みに失敗しました",
			slog.String("error", state.Error),
			slog.String("subscription", state.Subscription.String()),
		)
		return
	}
	j.logger.Info("定期リフレッシュが完了しました",
		slog.Int("count", len(state.Products)),
		slog.String("subscription", state.Subscription.String()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
