// Package settings は商品フォームの項目定義をプロセス内で管理する。
// 定義は永続化されず、ストアやプロバイダとは連携しない。
package settings

import (
	"sort"
	"strings"
	"sync"

	"github.com/hitoshi/catalogo/internal/model"
)

// lockedFieldName は編集・削除できない項目の名前。
const lockedFieldName = "titulo"

// DefaultFields は初期状態の項目定義を返す。
func DefaultFields() []model.FieldDefinition {
	return []model.FieldDefinition{
		{ID: 1, Name: "titulo", Label: "Título", Type: model.FieldTypeText, Required: true, IsDefault: true},
		{ID: 2, Name: "tipo", Label: "Tipo", Type: model.FieldTypeSelect, Options: []string{"Alimento", "Bebida", "Higiene", "Limpeza", "Outro"}, IsDefault: true},
		{ID: 3, Name: "ingredientes", Label: "Ingredientes", Type: model.FieldTypeTextarea, IsDefault: true},
		{ID: 4, Name: "fabricante", Label: "Fabricante", Type: model.FieldTypeText, IsDefault: true},
		{ID: 5, Name: "local", Label: "Local", Type: model.FieldTypeText, IsDefault: true},
		{ID: 6, Name: "selos", Label: "Selos", Type: model.FieldTypeText, IsDefault: true},
		{ID: 7, Name: "variacao", Label: "Variação", Type: model.FieldTypeText, IsDefault: true},
		{ID: 8, Name: "exportacao", Label: "Exportação", Type: model.FieldTypeText, IsDefault: true},
		{ID: 9, Name: "macro", Label: "Feira", Type: model.FieldTypeText, IsDefault: true},
		{ID: 10, Name: "observacoes", Label: "Observações", Type: model.FieldTypeTextarea, IsDefault: true},
	}
}

// FieldInput は項目の追加・編集リクエスト。
type FieldInput struct {
	Name     string          `json:"name"`
	Label    string          `json:"label"`
	Type     model.FieldType `json:"type"`
	Required bool            `json:"required"`
	Options  []string        `json:"options"`
}

// Registry は項目定義の一覧を保持する。並行利用に対して安全。
type Registry struct {
	mu     sync.RWMutex
	fields []model.FieldDefinition
}

// NewRegistry はDefaultFieldsで初期化されたRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{fields: DefaultFields()}
}

// List はID順の項目定義のコピーを返す。
func (r *Registry) List() []model.FieldDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.FieldDefinition, len(r.fields))
	for i, f := range r.fields {
		out[i] = cloneField(f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Add は新しい項目を追加する。IDは既存の最大値+1。
func (r *Registry) Add(in FieldInput) (model.FieldDefinition, error) {
	in, err := normalize(in)
	if err != nil {
		return model.FieldDefinition{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByName(in.Name) >= 0 {
		return model.FieldDefinition{}, model.NewInvalidFieldError("Já existe um campo com este nome")
	}

	maxID := 0
	for _, f := range r.fields {
		if f.ID > maxID {
			maxID = f.ID
		}
	}
	field := model.FieldDefinition{
		ID:       maxID + 1,
		Name:     in.Name,
		Label:    in.Label,
		Type:     in.Type,
		Required: in.Required,
		Options:  in.Options,
	}
	r.fields = append(r.fields, field)
	return cloneField(field), nil
}

// Update は項目を編集する。
// 既定の項目は名前と種別を変更できず、titulo項目は一切変更できない。
func (r *Registry) Update(id int, in FieldInput) (model.FieldDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexByID(id)
	if idx < 0 {
		return model.FieldDefinition{}, model.NewFieldNotFoundError(id)
	}
	current := r.fields[idx]
	if current.IsDefault && current.Name == lockedFieldName {
		return model.FieldDefinition{}, model.NewFieldLockedError(current.Name)
	}
	if current.IsDefault {
		in.Name = current.Name
		in.Type = current.Type
	}

	in, err := normalize(in)
	if err != nil {
		return model.FieldDefinition{}, err
	}
	if other := r.indexByName(in.Name); other >= 0 && other != idx {
		return model.FieldDefinition{}, model.NewInvalidFieldError("Já existe um campo com este nome")
	}

	current.Name = in.Name
	current.Label = in.Label
	current.Type = in.Type
	current.Required = in.Required
	current.Options = in.Options
	r.fields[idx] = current
	return cloneField(current), nil
}

// Remove は項目を削除する。titulo項目は削除できない。
func (r *Registry) Remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexByID(id)
	if idx < 0 {
		return model.NewFieldNotFoundError(id)
	}
	if f := r.fields[idx]; f.IsDefault && f.Name == lockedFieldName {
		return model.NewFieldLockedError(f.Name)
	}
	r.fields = append(r.fields[:idx], r.fields[idx+1:]...)
	return nil
}

func (r *Registry) indexByID(id int) int {
	for i, f := range r.fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) indexByName(name string) int {
	for i, f := range r.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// normalize は入力を整形し、項目定義の規則を検証する。
func normalize(in FieldInput) (FieldInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Label = strings.TrimSpace(in.Label)
	if in.Name == "" || in.Label == "" {
		return in, model.NewInvalidFieldError("Nome e rótulo são obrigatórios")
	}
	if in.Type == "" {
		in.Type = model.FieldTypeText
	}
	if !in.Type.Valid() {
		return in, model.NewInvalidFieldError("Tipo de campo inválido: " + string(in.Type))
	}

	var options []string
	for _, o := range in.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if in.Type == model.FieldTypeSelect {
		if len(options) == 0 {
			return in, model.NewInvalidFieldError("Campos de seleção precisam de opções")
		}
		in.Options = options
	} else {
		in.Options = nil
	}
	return in, nil
}

func cloneField(f model.FieldDefinition) model.FieldDefinition {
	if f.Options != nil {
		f.Options = append([]string(nil), f.Options...)
	}
	return f
}
