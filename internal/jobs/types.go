// Package jobs は回忆录生成の非同期ジョブ管理機能を提供します。
package jobs

import "time"

// Status はジョブの実行状態を表します。
// 遷移は queued → processing → completed | failed の一方向のみです。
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal は終端状態かどうかを返します。
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResultInfo はジョブ成功時の成果物参照です。
type ResultInfo struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// Record はジョブの現在状態を表します。
// 作成後の書き込みはワーカーだけが行い、他の呼び出し元からは読み取り専用です。
type Record struct {
	JobID     string      `json:"jobId"`
	OwnerID   string      `json:"ownerId"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Error     string      `json:"error,omitempty"`
	Result    *ResultInfo `json:"result,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Clone はレコードの独立したコピーを返します。
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Result != nil {
		result := *r.Result
		clone.Result = &result
	}
	return &clone
}
