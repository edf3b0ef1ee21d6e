package interview

import "time"

// Mode は面接の実施形式です。
type Mode string

const (
	ModeOnsite Mode = "onsite"
	ModeVideo  Mode = "video"
	ModePhone  Mode = "phone"
)

// Status は面接の状態です。
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// transitions は状態ごとに遷移可能な次の状態です。終端状態は含みません。
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition は from から to へ遷移できるかを返します。
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Recommendation は面接官の推薦度です。
type Recommendation string

const (
	RecommendStrongYes Recommendation = "strong_yes"
	RecommendYes       Recommendation = "yes"
	RecommendNo        Recommendation = "no"
	RecommendStrongNo  Recommendation = "strong_no"
)

// Interview は応募に対する面接です。Panel は面接官のユーザー ID です。
type Interview struct {
	ID              string
	CompanyID       string
	JobCandidateID  string
	ScheduledAt     time.Time
	DurationMinutes int
	Mode            Mode
	Location        string
	Status          Status
	Panel           []string
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Feedback        []*Feedback
}

// HasPanelist は userID が面接官に含まれるかを返します。
func (i *Interview) HasPanelist(userID string) bool {
	for _, id := range i.Panel {
		if id == userID {
			return true
		}
	}
	return false
}

// Feedback は面接官 1 人分の評価です。
type Feedback struct {
	ID             string
	CompanyID      string
	InterviewID    string
	InterviewerID  string
	Rating         int
	Recommendation Recommendation
	Notes          string
	CreatedAt      time.Time
}
