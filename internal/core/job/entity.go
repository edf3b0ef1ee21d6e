package job

import (
	"strings"
	"time"
)

// Status は求人の公開状態を表します。
type Status string

const (
	StatusDraft  Status = "draft"
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// DefaultStageNames はステージ未指定で求人を作成した場合の選考ステージです。
var DefaultStageNames = []string{"Applied", "Screening", "Interview", "Offer", "Hired", "Rejected"}

// Job は会社が公開する求人を表すエンティティです。Stages は Position 順に並びます。
type Job struct {
	ID          string
	CompanyID   string
	Title       string
	Department  string
	RecruiterID *string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Stages      []*Stage
}

// Stage は求人に属する選考ステージです。
type Stage struct {
	ID        string
	JobID     string
	Name      string
	Position  int
	Mandatory bool
	CreatedAt time.Time
}

// StageByID は求人に属するステージを ID で探します。
func (j *Job) StageByID(id string) (*Stage, bool) {
	for _, s := range j.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// FirstStage は先頭のステージを返します。
func (j *Job) FirstStage() (*Stage, bool) {
	if len(j.Stages) == 0 {
		return nil, false
	}
	first := j.Stages[0]
	for _, s := range j.Stages[1:] {
		if s.Position < first.Position {
			first = s
		}
	}
	return first, true
}

func (j *Job) hasStageNamed(name string) bool {
	for _, s := range j.Stages {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}
