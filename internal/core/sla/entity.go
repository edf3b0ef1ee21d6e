package sla

import "time"

// Status は SLA の評価結果です。
type Status string

const (
	StatusOnTrack  Status = "on_track"
	StatusAtRisk   Status = "at_risk"
	StatusBreached Status = "breached"
)

// severity は Status の深刻度を返します。値が大きいほど深刻です。
func (s Status) severity() int {
	switch s {
	case StatusBreached:
		return 2
	case StatusAtRisk:
		return 1
	default:
		return 0
	}
}

// Config は会社ごと、ステージ名ごとの滞在日数の閾値です。
type Config struct {
	ID            string
	CompanyID     string
	StageName     string
	ThresholdDays int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OpenEntry は現在滞在中のステージ履歴に応募者と求人の情報を結合したものです。
type OpenEntry struct {
	CompanyID      string
	JobCandidateID string
	CandidateID    string
	CandidateName  string
	JobID          string
	JobTitle       string
	StageID        string
	StageName      string
	EnteredAt      time.Time
}

// Evaluation は 1 件の応募に対する SLA 評価です。
type Evaluation struct {
	OpenEntry
	ThresholdDays int
	DaysInStage   int
	DaysOverdue   int
	Status        Status
}

// StatusCounts は状態ごとの件数です。
type StatusCounts struct {
	OnTrack  int
	AtRisk   int
	Breached int
}

func (c *StatusCounts) add(s Status) {
	switch s {
	case StatusBreached:
		c.Breached++
	case StatusAtRisk:
		c.AtRisk++
	default:
		c.OnTrack++
	}
}

// RoleSummary は求人(ロール)ごとの評価集計です。WorstStatus は滞在中の応募で最も深刻な状態です。
type RoleSummary struct {
	JobID       string
	JobTitle    string
	Counts      StatusCounts
	WorstStatus Status
}

// Summary は会社全体の集計です。Totals は各ロールを WorstStatus で数えた件数です。
type Summary struct {
	Roles  []RoleSummary
	Totals StatusCounts
}
