// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Product はカタログに登録される商品を表す。
// IDとDataCadastroはストアが採番・設定し、以後は変更されない。
// IDが0の値は未保存のドラフトを表す。
type Product struct {
	ID              int64
	Titulo          string
	Tipo            string
	Ingredientes    string
	Fabricante      string
	Local           string
	Selos           string
	Variacao        string
	Exportacao      string
	Macro           string
	ImagemFront     string
	ImagemVerso     string
	ImagemAdicional string
	Observacoes     string
	DataCadastro    time.Time
}

// IsPersisted はストアによって採番済みかどうかを返す。
func (p Product) IsPersisted() bool {
	return p.ID > 0
}

// SelosList は表示用の認証シール一覧を返す。
func (p Product) SelosList() []string {
	return ParseSelos(p.Selos)
}

// Images はカルーセル表示用の画像URLを front, verso, adicional の順で返す。
// 空のスロットは含めない。
func (p Product) Images() []string {
	var images []string
	for _, u := range []string{p.ImagemFront, p.ImagemVerso, p.ImagemAdicional} {
		if strings.TrimSpace(u) != "" {
			images = append(images, u)
		}
	}
	return images
}

// ImageSlot は商品画像のスロットを表す。
type ImageSlot string

const (
	// ImageSlotFront は正面画像。
	ImageSlotFront ImageSlot = "front"
	// ImageSlotVerso は裏面画像。
	ImageSlotVerso ImageSlot = "verso"
	// ImageSlotAdicional は追加画像。
	ImageSlotAdicional ImageSlot = "adicional"
)

// ImageURL は指定スロットの画像URLを返す。未知のスロットの場合はfalseを返す。
func (p Product) ImageURL(slot ImageSlot) (string, bool) {
	switch slot {
	case ImageSlotFront:
		return p.ImagemFront, true
	case ImageSlotVerso:
		return p.ImagemVerso, true
	case ImageSlotAdicional:
		return p.ImagemAdicional, true
	default:
		return "", false
	}
}

// ParseSelos はカンマ区切りの文字列を分割し、前後の空白を除去した上で空要素を捨てる。
// カンマのみの入力は空のスライスになる。
func ParseSelos(raw string) []string {
	selos := []string{}
	for _, part := range strings.Split(raw, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		selos = append(selos, s)
	}
	return selos
}

// ProductPatch は商品の部分更新内容を表す。
// nilのフィールドは変更しない。IDとDataCadastroは更新対象に含まれない。
type ProductPatch struct {
	Titulo          *string
	Tipo            *string
	Ingredientes    *string
	Fabricante      *string
	Local           *string
	Selos           *string
	Variacao        *string
	Exportacao      *string
	Macro           *string
	ImagemFront     *string
	ImagemVerso     *string
	ImagemAdicional *string
	Observacoes     *string
}

// PatchField はカラム名と更新値の組。
type PatchField struct {
	Column string
	Value  string
}

// Fields は指定されたフィールドをカラム名の固定順で返す。
func (p ProductPatch) Fields() []PatchField {
	candidates := []struct {
		column string
		value  *string
	}{
		{"titulo", p.Titulo},
		{"tipo", p.Tipo},
		{"ingredientes", p.Ingredientes},
		{"fabricante", p.Fabricante},
		{"local", p.Local},
		{"selos", p.Selos},
		{"variacao", p.Variacao},
		{"exportacao", p.Exportacao},
		{"macro", p.Macro},
		{"imagem_front", p.ImagemFront},
		{"imagem_verso", p.ImagemVerso},
		{"imagem_adicional", p.ImagemAdicional},
		{"observacoes", p.Observacoes},
	}

	var fields []PatchField
	for _, c := range candidates {
		if c.value != nil {
			fields = append(fields, PatchField{Column: c.column, Value: *c.value})
		}
	}
	return fields
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (p ProductPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply は指定されたフィールドのみを商品に反映した新しい値を返す。
func (p ProductPatch) Apply(product Product) Product {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&product.Titulo, p.Titulo)
	set(&product.Tipo, p.Tipo)
	set(&product.Ingredientes, p.Ingredientes)
	set(&product.Fabricante, p.Fabricante)
	set(&product.Local, p.Local)
	set(&product.Selos, p.Selos)
	set(&product.Variacao, p.Variacao)
	set(&product.Exportacao, p.Exportacao)
	set(&product.Macro, p.Macro)
	set(&product.ImagemFront, p.ImagemFront)
	set(&product.ImagemVerso, p.ImagemVerso)
	set(&product.ImagemAdicional, p.ImagemAdicional)
	set(&product.Observacoes, p.Observacoes)
	return product
}
