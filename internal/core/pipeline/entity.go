package pipeline

import "time"

// JobCandidate は応募者の求人への応募(選考)を表すエンティティです。
type JobCandidate struct {
	ID             string
	CompanyID      string
	JobID          string
	CandidateID    string
	CurrentStageID string
	AppliedAt      time.Time
	UpdatedAt      time.Time

	// 一覧表示用に結合される参照情報です。永続化はしません。
	CandidateName    string
	JobTitle         string
	CurrentStageName string
}

// StageHistory はステージ滞在の記録です。ExitedAt が nil の行が現在のステージを表します。
type StageHistory struct {
	ID             string
	CompanyID      string
	JobCandidateID string
	StageID        string
	StageName      string
	EnteredAt      time.Time
	ExitedAt       *time.Time
	Comment        string
	MovedBy        *string
}

// IsOpen は現在滞在中の記録かを返します。
func (h *StageHistory) IsOpen() bool {
	return h.ExitedAt == nil
}

// EventKind はステージ変更イベントの種類です。
type EventKind string

const (
	EventApplied      EventKind = "application_created"
	EventStageChanged EventKind = "stage_change"
)

// StageChangedEvent はコミット後にフックへ渡されるステージ変更の通知です。
type StageChangedEvent struct {
	Kind           EventKind
	CompanyID      string
	JobCandidateID string
	JobID          string
	JobTitle       string
	CandidateID    string
	CandidateName  string
	FromStageID    string
	FromStageName  string
	ToStageID      string
	ToStageName    string
	ActorID        string
	Comment        string
	OccurredAt     time.Time
}

// MoveFailure は一括移動で失敗した 1 件を表します。
type MoveFailure struct {
	CandidateID string
	Err         error
}

// BulkMoveResult は一括移動の集計結果です。
type BulkMoveResult struct {
	MovedCount  int
	FailedCount int
	Failures    []MoveFailure
}
