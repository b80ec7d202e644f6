package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/catalogo/internal/config"
	"github.com/hitoshi/catalogo/internal/database"
	"github.com/hitoshi/catalogo/internal/model"
	"github.com/hitoshi/catalogo/internal/repository"
)

const sampleImageURL = "https://images.unsplash.com/photo-1553456558-aff63285bdd1?w=800&q=80"

// SampleProducts はseedコマンドとインメモリストアで投入するサンプル商品。
func SampleProducts() []model.Product {
	return []model.Product{
		{
			Titulo:          "Produto Exemplo",
			Tipo:            "Alimento",
			Ingredientes:    "Água, açúcar, conservantes, corantes artificiais, aromatizantes.",
			Fabricante:      "Indústria Alimentícia ABC",
			Local:           "São Paulo, Brasil",
			Selos:           "Orgânico, Sem Glúten, Vegano",
			Variacao:        "Tradicional",
			Exportacao:      "Sim - América Latina",
			Macro:           "Carboidratos: 25g, Proteínas: 5g, Gorduras: 2g",
			ImagemFront:     sampleImageURL,
			ImagemVerso:     sampleImageURL,
			ImagemAdicional: sampleImageURL,
			Observacoes:     "Este é um produto exemplo para demonstração do sistema.",
		},
		{
			Titulo:     "Suco de Laranja",
			Tipo:       "Bebida",
			Fabricante: "Fazenda Boa Vista",
			Local:      "Limeira, Brasil",
			Selos:      "Sem Conservantes",
			Variacao:   "Integral 1L",
		},
		{
			Titulo:     "Sabonete Neutro",
			Tipo:       "Higiene",
			Fabricante: "Cosméticos Aurora",
			Local:      "Curitiba, Brasil",
			Selos:      "Vegano, Cruelty Free",
		},
	}
}

// seedProducts はサンプル商品をストアに投入し、投入件数を返す。
func seedProducts(ctx context.Context, store repository.ProductStore) (int, error) {
	count := 0
	for _, p := range SampleProducts() {
		if _, err := store.Insert(ctx, &p); err != nil {
			return count, fmt.Errorf("failed to insert sample product %q: %w", p.Titulo, err)
		}
		count++
	}
	return count, nil
}

// runSeed はPostgreSQLにサンプル商品を投入する。
// 投入はトリガー経由で変更通知となり、起動中のサーバーのキャッシュにも反映される。
func runSeed(cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Info("memory store is seeded on serve; nothing to do")
		return nil
	}

	ctx := context.Background()
	dsn, err := database.WithAccessKey(cfg.DatabaseURL, cfg.DatabaseAccessKey)
	if err != nil {
		return err
	}
	db, err := database.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	n, err := seedProducts(ctx, repository.NewPostgresProductStore(db))
	if err != nil {
		return err
	}

	slog.Info("sample products inserted", slog.Int("count", n))
	return nil
}
