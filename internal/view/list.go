// Package view はプロバイダのキャッシュから各画面の表示モデルを組み立てる。
package view

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/hitoshi/catalogo/internal/model"
)

// PageSize は一覧画面の1ページあたりの件数。
const PageSize = 5

// TipoOptions は一覧画面の種別フィルタの選択肢。
var TipoOptions = []string{"Alimento", "Bebida", "Higiene", "Limpeza"}

// ListQuery は一覧画面の検索・絞り込み・ページ指定。
type ListQuery struct {
	Search     string
	Tipo       string
	Fabricante string
	Local      string
	Page       int
	// FilterKey は前回応答のフィルタキー。現在の条件と異なればページを1に戻す。
	FilterKey string
}

// Key は検索条件を表すフィルタキーを返す。ページ番号は含まない。
func (q ListQuery) Key() string {
	h := fnv.New64a()
	for _, part := range []string{q.Search, q.Tipo, q.Fabricante, q.Local} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// ListPage は一覧画面の1ページ分の表示モデル。
type ListPage struct {
	Items      []model.Product
	Page       int
	TotalPages int
	TotalItems int
	PageSize   int
	FilterKey  string
	// PageReset は条件の変化によりページが1に戻されたことを示す。
	PageReset bool
}

// Filter は検索語とファセットで商品を絞り込む。
// 検索語はtituloとfabricanteに対する大文字小文字を区別しない部分一致、
// ファセットは空でない場合のみ完全一致で比較する。元の順序を保つ。
func Filter(products []model.Product, q ListQuery) []model.Product {
	search := strings.ToLower(q.Search)
	filtered := []model.Product{}
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Titulo), search) &&
			!strings.Contains(strings.ToLower(p.Fabricante), search) {
			continue
		}
		if q.Tipo != "" && p.Tipo != q.Tipo {
			continue
		}
		if q.Fabricante != "" && p.Fabricante != q.Fabricante {
			continue
		}
		if q.Local != "" && p.Local != q.Local {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// Paginate は指定ページの要素を返す。ページは[1, 最終ページ]に丸められる。
// 要素が0件の場合も最終ページは1とする。
func Paginate(items []model.Product, page int) ([]model.Product, int, int) {
	totalPages := (len(items) + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	end := start + PageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], page, totalPages
}

// BuildList は絞り込みとページングを適用した一覧ページを返す。
func BuildList(products []model.Product, q ListQuery) ListPage {
	key := q.Key()
	page := q.Page
	reset := false
	if q.FilterKey != "" && q.FilterKey != key {
		page = 1
		reset = true
	}

	filtered := Filter(products, q)
	items, page, totalPages := Paginate(filtered, page)

	return ListPage{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(filtered),
		PageSize:   PageSize,
		FilterKey:  key,
		PageReset:  reset,
	}
}

// Facets は一覧画面のフィルタ選択肢。
type Facets struct {
	Tipos       []string
	Fabricantes []string
	Locais      []string
}

// BuildFacets はキャッシュからフィルタの選択肢を作る。
// fabricanteとlocalは初出順の重複なし、空文字は除く。
func BuildFacets(products []model.Product) Facets {
	return Facets{
		Tipos:       append([]string(nil), TipoOptions...),
		Fabricantes: distinct(products, func(p model.Product) string { return p.Fabricante }),
		Locais:      distinct(products, func(p model.Product) string { return p.Local }),
	}
}

func distinct(products []model.Product, field func(model.Product) string) []string {
	seen := make(map[string]bool)
	values := []string{}
	for _, p := range products {
		v := field(p)
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}
