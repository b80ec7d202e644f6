package view

import (
	"fmt"
	"strings"

	"github.com/hitoshi/catalogo/internal/model"
)

// MaxImages はフォームで受け付ける画像の最大数。front, verso, adicional の3スロット。
const MaxImages = 3

// tituloRequiredMessage はtitulo未入力時の検証メッセージ。
const tituloRequiredMessage = "Título é obrigatório"

// MarkupChecker は自由記述欄にHTMLマークアップが含まれるかを判定する。
type MarkupChecker interface {
	ContainsMarkup(text string) bool
}

// URLValidator は画像URLを検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// FormInput は作成フォームおよび編集リクエストの入力。
// nilのフィールドは未指定を表す。
// Imagesは先頭から imagem_front, imagem_verso, imagem_adicional に割り当てられる。
type FormInput struct {
	Titulo          *string  `json:"titulo"`
	Tipo            *string  `json:"tipo"`
	Ingredientes    *string  `json:"ingredientes"`
	Fabricante      *string  `json:"fabricante"`
	Local           *string  `json:"local"`
	Selos           *string  `json:"selos"`
	Variacao        *string  `json:"variacao"`
	Exportacao      *string  `json:"exportacao"`
	Macro           *string  `json:"macro"`
	Observacoes     *string  `json:"observacoes"`
	ImagemFront     *string  `json:"imagem_front"`
	ImagemVerso     *string  `json:"imagem_verso"`
	ImagemAdicional *string  `json:"imagem_adicional"`
	Images          []string `json:"images"`
}

// FormBuilder はフォーム入力を検証し、ドラフトまたは部分更新に変換する。
// 検証に失敗した入力がリポジトリに到達することはない。
type FormBuilder struct {
	markup    MarkupChecker
	validator URLValidator
}

// NewFormBuilder はFormBuilderを生成する。
func NewFormBuilder(markup MarkupChecker, validator URLValidator) *FormBuilder {
	return &FormBuilder{markup: markup, validator: validator}
}

// BuildDraft は作成用のドラフトを組み立てる。titulo以外は任意。
func (b *FormBuilder) BuildDraft(in FormInput) (model.Product, error) {
	patch, err := b.buildPatch(in)
	if err != nil {
		return model.Product{}, err
	}
	if patch.Titulo == nil || *patch.Titulo == "" {
		return model.Product{}, model.NewValidationError(tituloRequiredMessage)
	}
	return patch.Apply(model.Product{}), nil
}

// BuildPatch は部分更新を組み立てる。tituloを指定する場合は空にできない。
func (b *FormBuilder) BuildPatch(in FormInput) (model.ProductPatch, error) {
	patch, err := b.buildPatch(in)
	if err != nil {
		return model.ProductPatch{}, err
	}
	if patch.Titulo != nil && *patch.Titulo == "" {
		return model.ProductPatch{}, model.NewValidationError(tituloRequiredMessage)
	}
	if patch.IsEmpty() {
		return model.ProductPatch{}, model.NewInvalidRequestError("nenhum campo para atualizar")
	}
	return patch, nil
}

func (b *FormBuilder) buildPatch(in FormInput) (model.ProductPatch, error) {
	var patch model.ProductPatch
	fields := []struct {
		label string
		src   *string
		dst   **string
	}{
		{"Título", in.Titulo, &patch.Titulo},
		{"Tipo", in.Tipo, &patch.Tipo},
		{"Ingredientes", in.Ingredientes, &patch.Ingredientes},
		{"Fabricante", in.Fabricante, &patch.Fabricante},
		{"Local", in.Local, &patch.Local},
		{"Selos", in.Selos, &patch.Selos},
		{"Variação", in.Variacao, &patch.Variacao},
		{"Exportação", in.Exportacao, &patch.Exportacao},
		{"Macro", in.Macro, &patch.Macro},
		{"Observações", in.Observacoes, &patch.Observacoes},
	}
	for _, f := range fields {
		v, err := b.text(f.label, f.src)
		if err != nil {
			return model.ProductPatch{}, err
		}
		*f.dst = v
	}

	front, verso, adicional := in.ImagemFront, in.ImagemVerso, in.ImagemAdicional
	if in.Images != nil {
		if len(in.Images) > MaxImages {
			return model.ProductPatch{}, model.NewValidationError("No máximo 3 imagens são permitidas")
		}
		slots := make([]string, MaxImages)
		copy(slots, in.Images)
		front, verso, adicional = &slots[0], &slots[1], &slots[2]
	}

	var err error
	if patch.ImagemFront, err = b.imageURL(front); err != nil {
		return model.ProductPatch{}, err
	}
	if patch.ImagemVerso, err = b.imageURL(verso); err != nil {
		return model.ProductPatch{}, err
	}
	if patch.ImagemAdicional, err = b.imageURL(adicional); err != nil {
		return model.ProductPatch{}, err
	}
	return patch, nil
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// text は前後の空白と改行コードだけを整え、それ以外は入力どおりに保持する。
// マークアップを含む入力は書き換えずに拒否する。
func (b *FormBuilder) text(label string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := newlineReplacer.Replace(strings.TrimSpace(*v))
	if b.markup != nil && b.markup.ContainsMarkup(s) {
		return nil, model.NewValidationError(fmt.Sprintf("O campo %s não pode conter marcação HTML", label))
	}
	return &s, nil
}

// imageURL は空文字列をスロットのクリアとして扱い、それ以外は検証する。
func (b *FormBuilder) imageURL(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*v)
	if s != "" && b.validator != nil {
		if err := b.validator.ValidateURL(s); err != nil {
			return nil, model.NewImageURLBlockedError()
		}
	}
	return &s, nil
}
