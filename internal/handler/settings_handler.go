package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/settings"
)

// FieldRegistry はフォーム項目定義の管理インターフェース。
type FieldRegistry interface {
	List() []model.FieldDefinition
	Add(in settings.FieldInput) (model.FieldDefinition, error)
	Update(id int, in settings.FieldInput) (model.FieldDefinition, error)
	Remove(id int) error
}

// ConnectionInfo は設定画面に表示する接続情報。値はマスク済みであること。
type ConnectionInfo struct {
	StoreDriver         string
	MaskedEndpoint      string
	AccessKeyConfigured bool
}

// SettingsHandler は設定画面のHTTPハンドラー。
// 項目定義はプロセス内でのみ保持され、ストアやプロバイダには触れない。
type SettingsHandler struct {
	registry   FieldRegistry
	connection ConnectionInfo
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(registry FieldRegistry, connection ConnectionInfo) *SettingsHandler {
	return &SettingsHandler{registry: registry, connection: connection}
}

type fieldResponse struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
	IsDefault bool     `json:"is_default"`
}

func toFieldResponse(f model.FieldDefinition) fieldResponse {
	return fieldResponse{
		ID:        f.ID,
		Name:      f.Name,
		Label:     f.Label,
		Type:      string(f.Type),
		Required:  f.Required,
		Options:   f.Options,
		IsDefault: f.IsDefault,
	}
}

type connectionResponse struct {
	StoreDriver         string `json:"store_driver"`
	Endpoint            string `json:"endpoint"`
	AccessKeyConfigured bool   `json:"access_key_configured"`
}

// ListFields は項目定義の一覧を返す。
// GET /api/settings/fields
func (h *SettingsHandler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields := h.registry.List()
	resp := make([]fieldResponse, 0, len(fields))
	for _, f := range fields {
		resp = append(resp, toFieldResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddField は項目を追加する。
// POST /api/settings/fields
func (h *SettingsHandler) AddField(w http.ResponseWriter, r *http.Request) {
	var in settings.FieldInput
	if !decodeJSONBody(w, r, &in) {
		return
	}

	f, err := h.registry.Add(in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFieldResponse(f))
}

// UpdateField は項目を編集する。
// PUT /api/settings/fields/{id}
func (h *SettingsHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	id, ok := fieldIDParam(w, r)
	if !ok {
		return
	}

	var in settings.FieldInput
	if !decodeJSONBody(w, r, &in) {
		return
	}

	f, err := h.registry.Update(id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFieldResponse(f))
}

// DeleteField は項目を削除する。
// DELETE /api/settings/fields/{id}
func (h *SettingsHandler) DeleteField(w http.ResponseWriter, r *http.Request) {
	id, ok := fieldIDParam(w, r)
	if !ok {
		return
	}

	if err := h.registry.Remove(id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Connection はマスク済みの接続情報を返す。読み取り専用。
// GET /api/settings/connection
func (h *SettingsHandler) Connection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, connectionResponse{
		StoreDriver:         h.connection.StoreDriver,
		Endpoint:            h.connection.MaskedEndpoint,
		AccessKeyConfigured: h.connection.AccessKeyConfigured,
	})
}

func fieldIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("id do campo inválido"))
		return 0, false
	}
	return id, true
}
