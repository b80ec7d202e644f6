package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: product, validation, store, settings, media, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeStoreFailure         = "STORE_FAILURE"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	ErrCodeFieldNotFound        = "FIELD_NOT_FOUND"
	ErrCodeInvalidField         = "INVALID_FIELD"
	ErrCodeFieldLocked          = "FIELD_LOCKED"
	ErrCodeImageNotAvailable    = "IMAGE_NOT_AVAILABLE"
	ErrCodeImageURLBlocked      = "IMAGE_URL_BLOCKED"
)

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("Produto não encontrado: %d", id),
		Category: "product",
		Action:   "Verifique o identificador do produto e tente novamente.",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "Corrija os campos indicados e envie novamente.",
	}
}

// NewLoadFailedError は一覧取得失敗エラーを生成する。
func NewLoadFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreFailure,
		Message:  "Erro ao carregar produtos",
		Category: "store",
		Action:   "Tente atualizar a lista em alguns instantes.",
	}
}

// NewSaveFailedError は作成・更新失敗エラーを生成する。
func NewSaveFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreFailure,
		Message:  "Erro ao salvar o produto. Tente novamente.",
		Category: "store",
		Action:   "Verifique a conexão com o banco de dados e tente novamente.",
	}
}

// NewDeleteFailedError は削除失敗エラーを生成する。
func NewDeleteFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreFailure,
		Message:  "Erro ao excluir o produto. Tente novamente.",
		Category: "store",
		Action:   "Verifique a conexão com o banco de dados e tente novamente.",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Requisição inválida: %s", reason),
		Category: "validation",
		Action:   "Verifique o formato da requisição.",
	}
}

// NewConfirmationRequiredError は削除確認が無い場合のエラーを生成する。
func NewConfirmationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeConfirmationRequired,
		Message:  "Tem certeza que deseja excluir este produto?",
		Category: "product",
		Action:   "Confirme a exclusão enviando confirm=true.",
	}
}

// NewFieldNotFoundError はフォーム項目未検出エラーを生成する。
func NewFieldNotFoundError(id int) *APIError {
	return &APIError{
		Code:     ErrCodeFieldNotFound,
		Message:  fmt.Sprintf("Campo não encontrado: %d", id),
		Category: "settings",
		Action:   "Verifique o identificador do campo.",
	}
}

// NewInvalidFieldError はフォーム項目定義の検証エラーを生成する。
func NewInvalidFieldError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  reason,
		Category: "settings",
		Action:   "Preencha o nome e o rótulo do campo com um tipo válido.",
	}
}

// NewFieldLockedError は変更不可の項目を操作しようとした場合のエラーを生成する。
func NewFieldLockedError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeFieldLocked,
		Message:  fmt.Sprintf("O campo %q não pode ser alterado ou removido.", name),
		Category: "settings",
		Action:   "Campos obrigatórios do sistema são fixos.",
	}
}

// NewImageNotAvailableError は画像スロットが空、または取得できない場合のエラーを生成する。
func NewImageNotAvailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageNotAvailable,
		Message:  fmt.Sprintf("Imagem indisponível: %s", reason),
		Category: "media",
		Action:   "Envie uma nova imagem para este produto.",
	}
}

// NewImageURLBlockedError は画像URLがセキュリティポリシーで拒否された場合のエラーを生成する。
func NewImageURLBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeImageURLBlocked,
		Message:  "A URL da imagem foi bloqueada pela política de segurança.",
		Category: "validation",
		Action:   "Use uma URL pública http:// ou https://. Endereços locais ou privados não são permitidos.",
	}
}
