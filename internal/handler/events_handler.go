package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// defaultKeepAlive はSSEのキープアライブコメントの送信間隔。
const defaultKeepAlive = 15 * time.Second

// EventsHandler はプロバイダの状態変化をServer-Sent Eventsで配信する。
type EventsHandler struct {
	provider  CatalogProvider
	keepAlive time.Duration
}

// NewEventsHandler はEventsHandlerを生成する。keepAliveが0以下の場合は既定値を使う。
func NewEventsHandler(provider CatalogProvider, keepAlive time.Duration) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &EventsHandler{provider: provider, keepAlive: keepAlive}
}

// Stream は接続直後に現在の状態を送り、以後は状態が変わるたびにstateイベントを送る。
// クライアントの切断またはプロバイダのCloseで終了する。
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// サーバーのWriteTimeoutをこの接続では無効にする
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && err != http.ErrNotSupported {
		slog.WarnContext(r.Context(), "failed to clear write deadline", slog.String("error", err.Error()))
	}

	changes, stop := h.provider.Watch()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var (
		lastVersion uint64
		lastLoading bool
	)
	send := func(force bool) error {
		state := h.provider.Snapshot()
		if !force && state.Version == lastVersion && state.Loading == lastLoading {
			return nil
		}
		lastVersion, lastLoading = state.Version, state.Loading
		payload, err := json.Marshal(toStateResponse(state))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", state.Version, payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(true); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-changes:
			if !open {
				return
			}
			if err := send(false); err != nil {
				slog.DebugContext(r.Context(), "sse client gone", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
