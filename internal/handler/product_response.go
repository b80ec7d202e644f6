package handler

import (
	"fmt"
	"time"

	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/view"
)

// productResponse は商品のAPIレスポンス。
type productResponse struct {
	ID              int64     `json:"id"`
	Titulo          string    `json:"titulo"`
	Tipo            string    `json:"tipo"`
	Ingredientes    string    `json:"ingredientes"`
	Fabricante      string    `json:"fabricante"`
	Local           string    `json:"local"`
	Selos           string    `json:"selos"`
	Variacao        string    `json:"variacao"`
	Exportacao      string    `json:"exportacao"`
	Macro           string    `json:"macro"`
	ImagemFront     string    `json:"imagem_front"`
	ImagemVerso     string    `json:"imagem_verso"`
	ImagemAdicional string    `json:"imagem_adicional"`
	Observacoes     string    `json:"observacoes"`
	DataCadastro    time.Time `json:"data_cadastro"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:              p.ID,
		Titulo:          p.Titulo,
		Tipo:            p.Tipo,
		Ingredientes:    p.Ingredientes,
		Fabricante:      p.Fabricante,
		Local:           p.Local,
		Selos:           p.Selos,
		Variacao:        p.Variacao,
		Exportacao:      p.Exportacao,
		Macro:           p.Macro,
		ImagemFront:     p.ImagemFront,
		ImagemVerso:     p.ImagemVerso,
		ImagemAdicional: p.ImagemAdicional,
		Observacoes:     p.Observacoes,
		DataCadastro:    p.DataCadastro,
	}
}

func toProductResponses(products []model.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

// imageResponse はカルーセル画像1枚のレスポンス。
// ProxyURLは画像プロキシ経由で取得する場合のパス。
type imageResponse struct {
	Slot     string `json:"slot"`
	URL      string `json:"url"`
	ProxyURL string `json:"proxy_url"`
}

// detailResponse は詳細画面のレスポンス。
type detailResponse struct {
	Product    productResponse `json:"product"`
	Selos      []string        `json:"selos"`
	Images     []imageResponse `json:"images"`
	PreviousID *int64          `json:"previous_id"`
	NextID     int64           `json:"next_id"`
}

func toDetailResponse(d view.Detail) detailResponse {
	images := make([]imageResponse, 0, len(d.Images))
	for _, img := range d.Images {
		images = append(images, imageResponse{
			Slot:     string(img.Slot),
			URL:      img.URL,
			ProxyURL: fmt.Sprintf("/api/products/%d/images/%s", d.Product.ID, img.Slot),
		})
	}
	resp := detailResponse{
		Product: toProductResponse(d.Product),
		Selos:   d.Selos,
		Images:  images,
		NextID:  d.NextID,
	}
	if d.PreviousID > 0 {
		prev := d.PreviousID
		resp.PreviousID = &prev
	}
	return resp
}
