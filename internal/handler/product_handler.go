package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/catalogo/internal/catalog"
	"github.com/hitoshi/catalogo/internal/media"
	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/view"
)

// CatalogProvider はハンドラーが必要とするプロバイダのインターフェース。
type CatalogProvider interface {
	Snapshot() catalog.State
	Refresh(ctx context.Context)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	Create(ctx context.Context, draft model.Product) (*model.Product, error)
	Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
	Watch() (<-chan struct{}, func())
}

// FormBuilder はフォーム入力の検証と変換を行う。
type FormBuilder interface {
	BuildDraft(in view.FormInput) (model.Product, error)
	BuildPatch(in view.FormInput) (model.ProductPatch, error)
}

// ImageFetcher は画像プロキシのインターフェース。
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*media.Image, error)
}

// ProductHandler は商品の一覧・詳細・作成・編集・削除のHTTPハンドラー。
type ProductHandler struct {
	provider CatalogProvider
	forms    FormBuilder
	images   ImageFetcher
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(provider CatalogProvider, forms FormBuilder, images ImageFetcher) *ProductHandler {
	return &ProductHandler{
		provider: provider,
		forms:    forms,
		images:   images,
	}
}

// facetsResponse は一覧画面のフィルタ選択肢。
type facetsResponse struct {
	Tipos       []string `json:"tipos"`
	Fabricantes []string `json:"fabricantes"`
	Locais      []string `json:"locais"`
}

// listResponse は一覧画面のレスポンス。
type listResponse struct {
	Items       []productResponse `json:"items"`
	Page        int               `json:"page"`
	TotalPages  int               `json:"total_pages"`
	TotalItems  int               `json:"total_items"`
	PageSize    int               `json:"page_size"`
	FilterKey   string            `json:"filter_key"`
	PageReset   bool              `json:"page_reset"`
	Facets      facetsResponse    `json:"facets"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	Version     uint64            `json:"version"`
	RefreshedAt *time.Time        `json:"refreshed_at,omitempty"`
}

// stateResponse はプロバイダの状態のレスポンス。
type stateResponse struct {
	Version      uint64     `json:"version"`
	Count        int        `json:"count"`
	Loading      bool       `json:"loading"`
	Error        string     `json:"error,omitempty"`
	Subscription string     `json:"subscription"`
	RefreshedAt  *time.Time `json:"refreshed_at,omitempty"`
}

func toStateResponse(s catalog.State) stateResponse {
	resp := stateResponse{
		Version:      s.Version,
		Count:        len(s.Products),
		Loading:      s.Loading,
		Error:        s.Error,
		Subscription: s.Subscription.String(),
	}
	if !s.RefreshedAt.IsZero() {
		at := s.RefreshedAt
		resp.RefreshedAt = &at
	}
	return resp
}

// List はキャッシュから検索・絞り込み・ページングした一覧を返す。
// GET /api/products?q=&tipo=&fabricante=&local=&page=&filter_key=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("página inválida"))
			return
		}
		page = p
	}

	state := h.provider.Snapshot()
	listPage := view.BuildList(state.Products, view.ListQuery{
		Search:     q.Get("q"),
		Tipo:       q.Get("tipo"),
		Fabricante: q.Get("fabricante"),
		Local:      q.Get("local"),
		Page:       page,
		FilterKey:  q.Get("filter_key"),
	})
	facets := view.BuildFacets(state.Products)

	resp := listResponse{
		Items:      toProductResponses(listPage.Items),
		Page:       listPage.Page,
		TotalPages: listPage.TotalPages,
		TotalItems: listPage.TotalItems,
		PageSize:   listPage.PageSize,
		FilterKey:  listPage.FilterKey,
		PageReset:  listPage.PageReset,
		Facets: facetsResponse{
			Tipos:       facets.Tipos,
			Fabricantes: facets.Fabricantes,
			Locais:      facets.Locais,
		},
		Loading: state.Loading,
		Error:   state.Error,
		Version: state.Version,
	}
	if !state.RefreshedAt.IsZero() {
		at := state.RefreshedAt
		resp.RefreshedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create はフォーム入力から商品を作成する。検証に失敗した場合はストアを呼び出さない。
// POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in view.FormInput
	if !decodeJSONBody(w, r, &in) {
		return
	}

	draft, err := h.forms.BuildDraft(in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	created, err := h.provider.Create(r.Context(), draft)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, toProductResponse(*created))
}

// Get はストアから最新の商品を取得して詳細画面を返す。キャッシュは参照しない。
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.provider.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDetailResponse(view.BuildDetail(*p)))
}

// Update は指定されたフィールドのみを更新する。
// 存在しない商品の場合は404を返す。
// PATCH /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var in view.FormInput
	if !decodeJSONBody(w, r, &in) {
		return
	}
	patch, err := h.forms.BuildPatch(in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if _, err := h.provider.GetByID(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	updated, err := h.provider.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*updated))
}

// Delete は商品を削除する。confirm=trueが無い場合は428を返し、ストアは呼び出さない。
// 既に存在しない商品の削除も成功として扱う。
// DELETE /api/products/{id}?confirm=true
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		writeAPIErrorResponse(w, http.StatusPreconditionRequired, model.NewConfirmationRequiredError())
		return
	}

	if err := h.provider.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Refresh はキャッシュを手動で再取得し、その結果の状態を返す。
// POST /api/products/refresh
func (h *ProductHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.provider.Refresh(r.Context())
	writeJSON(w, http.StatusOK, toStateResponse(h.provider.Snapshot()))
}

// Image は商品画像をSSRF防止付きで取得して中継する。
// GET /api/products/{id}/images/{slot}
func (h *ProductHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	p, err := h.provider.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	rawURL, known := p.ImageURL(model.ImageSlot(chi.URLParam(r, "slot")))
	if !known {
		handleServiceError(w, r, model.NewImageNotAvailableError("slot desconhecido"))
		return
	}

	img, err := h.images.Fetch(r.Context(), rawURL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}
