package model

// FieldType はフォーム項目の入力種別。
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
)

// Valid は既知の入力種別かどうかを返す。
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeSelect, FieldTypeNumber, FieldTypeDate:
		return true
	default:
		return false
	}
}

// FieldDefinition は商品フォームに表示する項目の定義。
// プロセス内でのみ保持され、永続化されない。
type FieldDefinition struct {
	ID        int
	Name      string
	Label     string
	Type      FieldType
	Required  bool
	Options   []string
	IsDefault bool
}
