package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/catalogo/internal/view"
)

// HomeHandler はホーム画面のHTTPハンドラー。
type HomeHandler struct {
	provider CatalogProvider
	now      func() time.Time
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(provider CatalogProvider) *HomeHandler {
	return &HomeHandler{provider: provider, now: time.Now}
}

type activityResponse struct {
	ProductID int64  `json:"product_id"`
	Titulo    string `json:"titulo"`
	Time      string `json:"time"`
}

type homeResponse struct {
	Total      int                `json:"total"`
	Recent     int                `json:"recent"`
	Pending    int                `json:"pending"`
	Activities []activityResponse `json:"activities"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
}

// Summary はキャッシュから集計したホーム画面を返す。
// GET /api/home
func (h *HomeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	state := h.provider.Snapshot()
	summary := view.BuildHomeSummary(state.Products, h.now())

	activities := make([]activityResponse, 0, len(summary.Activities))
	for _, a := range summary.Activities {
		activities = append(activities, activityResponse{
			ProductID: a.ProductID,
			Titulo:    a.Titulo,
			Time:      a.TimeText,
		})
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Total:      summary.Total,
		Recent:     summary.Recent,
		Pending:    summary.Pending,
		Activities: activities,
		Loading:    state.Loading,
		Error:      state.Error,
	})
}
