// Package media は商品画像をSSRF防止付きで中継する。
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/hitoshi/catalogo/internal/metrics"
	"github.com/hitoshi/catalogo/internal/model"
)

// userAgent は画像取得時に送信するUser-Agent。
const userAgent = "Catalogo/1.0 Image Proxy"

// URLValidator は取得前に画像URLを検証する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Image は取得した画像。
type Image struct {
	Data        []byte
	ContentType string
}

// Proxy は保存された画像URLから画像を取得する。
type Proxy struct {
	validator URLValidator
	client    *http.Client
	maxSize   int64
	metrics   metrics.MetricsCollector
}

// NewProxy はProxyを生成する。clientにはSSRF防止付きのクライアントを渡す。
func NewProxy(validator URLValidator, client *http.Client, maxSize int64, m metrics.MetricsCollector) *Proxy {
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &Proxy{
		validator: validator,
		client:    client,
		maxSize:   maxSize,
		metrics:   m,
	}
}

// Fetch は画像を取得する。失敗時は*model.APIErrorを返す。
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	img, err := p.fetch(ctx, rawURL)
	p.metrics.RecordImageFetch(err == nil)
	return img, err
}

func (p *Proxy) fetch(ctx context.Context, rawURL string) (*Image, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, model.NewImageNotAvailableError("nenhuma imagem cadastrada")
	}

	if p.validator != nil {
		if err := p.validator.ValidateURL(rawURL); err != nil {
			slog.WarnContext(ctx, "画像取得: SSRFブロック", "url", rawURL, "error", err)
			return nil, model.NewImageURLBlockedError()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		slog.WarnContext(ctx, "画像取得: リクエスト作成失敗", "url", rawURL, "error", err)
		return nil, model.NewImageNotAvailableError("URL inválida")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "画像取得: HTTPリクエスト失敗", "url", rawURL, "error", err)
		return nil, model.NewImageNotAvailableError("falha ao buscar a imagem")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.WarnContext(ctx, "画像取得: HTTPステータス異常", "url", rawURL, "status", resp.StatusCode)
		return nil, model.NewImageNotAvailableError(fmt.Sprintf("status %d", resp.StatusCode))
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		slog.WarnContext(ctx, "画像取得: 画像以外のContent-Type", "url", rawURL, "contentType", mimeType)
		return nil, model.NewImageNotAvailableError("o conteúdo não é uma imagem")
	}

	if resp.ContentLength > p.maxSize {
		slog.WarnContext(ctx, "画像取得: サイズ超過", "url", rawURL, "size", resp.ContentLength)
		return nil, model.NewImageNotAvailableError("imagem muito grande")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxSize+1))
	if err != nil {
		slog.WarnContext(ctx, "画像取得: レスポンス読み取り失敗", "url", rawURL, "error", err)
		return nil, model.NewImageNotAvailableError("falha ao ler a imagem")
	}
	if int64(len(body)) > p.maxSize {
		slog.WarnContext(ctx, "画像取得: サイズ超過", "url", rawURL, "size", len(body))
		return nil, model.NewImageNotAvailableError("imagem muito grande")
	}

	return &Image{Data: body, ContentType: mimeType}, nil
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを取り出す。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
