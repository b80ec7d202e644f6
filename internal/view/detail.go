package view

import "github.com/hitoshi/catalogo/internal/model"

// Image はカルーセルに表示する画像1枚。
type Image struct {
	Slot model.ImageSlot
	URL  string
}

// Detail は詳細画面の表示モデル。
type Detail struct {
	Product model.Product
	Selos   []string
	Images  []Image
	// PreviousID はid-1。idが1以下の場合は0。
	PreviousID int64
	// NextID はid+1。存在確認は行わない。
	NextID int64
}

// BuildDetail は商品から詳細画面の表示モデルを作る。
func BuildDetail(p model.Product) Detail {
	d := Detail{
		Product: p,
		Selos:   p.SelosList(),
		Images:  []Image{},
		NextID:  p.ID + 1,
	}
	if p.ID > 1 {
		d.PreviousID = p.ID - 1
	}
	for _, slot := range []model.ImageSlot{model.ImageSlotFront, model.ImageSlotVerso, model.ImageSlotAdicional} {
		if u, _ := p.ImageURL(slot); u != "" {
			d.Images = append(d.Images, Image{Slot: slot, URL: u})
		}
	}
	return d
}
