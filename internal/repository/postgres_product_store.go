package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/catalogo/internal/model"
)

const productColumns = `id, titulo, tipo, ingredientes, fabricante, local, selos,
		        variacao, exportacao, macro, imagem_front, imagem_verso,
		        imagem_adicional, observacoes, data_cadastro`

// PostgresProductStore はPostgreSQLを使用した商品ストア。
type PostgresProductStore struct {
	db *sql.DB
}

// NewPostgresProductStore はPostgresProductStoreを生成する。
func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

// List は全商品をIDの降順で取得する。
func (s *PostgresProductStore) List(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM produtos
		 ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("商品の読み取りに失敗しました: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("商品一覧の走査に失敗しました: %w", err)
	}
	return products, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (s *PostgresProductStore) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+`
		 FROM produtos WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	return p, nil
}

// Insert は商品を追加する。data_cadastroはデータベースのDEFAULT now()で設定される。
func (s *PostgresProductStore) Insert(ctx context.Context, product *model.Product) (*model.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`INSERT INTO produtos (titulo, tipo, ingredientes, fabricante, local, selos,
		                       variacao, exportacao, macro, imagem_front, imagem_verso,
		                       imagem_adicional, observacoes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+productColumns,
		product.Titulo, nullString(product.Tipo), nullString(product.Ingredientes),
		nullString(product.Fabricante), nullString(product.Local), nullString(product.Selos),
		nullString(product.Variacao), nullString(product.Exportacao), nullString(product.Macro),
		nullString(product.ImagemFront), nullString(product.ImagemVerso),
		nullString(product.ImagemAdicional), nullString(product.Observacoes),
	))
	if err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}
	return p, nil
}

// Update は指定されたフィールドのみを更新する。
// 空のパッチは現在の行をそのまま返す。対象が存在しない場合はnilを返す。
func (s *PostgresProductStore) Update(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return s.FindByID(ctx, id)
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	args = append(args, id)
	for i, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, i+2))
		if f.Column == "titulo" {
			args = append(args, f.Value)
		} else {
			args = append(args, nullString(f.Value))
		}
	}

	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`UPDATE produtos SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1
		 RETURNING `+productColumns,
		args...,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	return p, nil
}

// Delete は指定IDの商品を削除する。行が削除された場合にtrueを返す。
func (s *PostgresProductStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM produtos WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// PingContext はデータベースへの疎通を確認する。
func (s *PostgresProductStore) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct は1行分の商品を読み取る。NULLのカラムは空文字列として扱う。
func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var tipo, ingredientes, fabricante, local, selos, variacao, exportacao,
		macro, imagemFront, imagemVerso, imagemAdicional, observacoes sql.NullString

	if err := row.Scan(
		&p.ID, &p.Titulo, &tipo, &ingredientes, &fabricante, &local, &selos,
		&variacao, &exportacao, &macro, &imagemFront, &imagemVerso,
		&imagemAdicional, &observacoes, &p.DataCadastro,
	); err != nil {
		return nil, err
	}

	p.Tipo = nullStringValue(tipo)
	p.Ingredientes = nullStringValue(ingredientes)
	p.Fabricante = nullStringValue(fabricante)
	p.Local = nullStringValue(local)
	p.Selos = nullStringValue(selos)
	p.Variacao = nullStringValue(variacao)
	p.Exportacao = nullStringValue(exportacao)
	p.Macro = nullStringValue(macro)
	p.ImagemFront = nullStringValue(imagemFront)
	p.ImagemVerso = nullStringValue(imagemVerso)
	p.ImagemAdicional = nullStringValue(imagemAdicional)
	p.Observacoes = nullStringValue(observacoes)
	return p, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// コンパイル時にインターフェース実装を検証する。
var (
	_ ProductStore = (*PostgresProductStore)(nil)
	_ Pinger       = (*PostgresProductStore)(nil)
)
