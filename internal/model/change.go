package model

// ChangeOp はストアから通知される変更の種別。
type ChangeOp string

const (
	// ChangeOpInsert は行の追加。
	ChangeOpInsert ChangeOp = "INSERT"
	// ChangeOpUpdate は行の更新。
	ChangeOpUpdate ChangeOp = "UPDATE"
	// ChangeOpDelete は行の削除。
	ChangeOpDelete ChangeOp = "DELETE"
	// ChangeOpResync は通知チャネルの再接続など、取りこぼしの可能性がある場合に発行される。
	ChangeOpResync ChangeOp = "RESYNC"
)

// ChangeEvent はproductsテーブルの変更通知を表す。
// 受信側は内容を解釈せず「何かが変わった」ことだけを利用する。
type ChangeEvent struct {
	Op        ChangeOp
	ProductID int64
}
