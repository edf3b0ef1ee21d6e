package candidate

import "time"

// Candidate は会社に登録された応募者です。
type Candidate struct {
	ID                string
	CompanyID         string
	Name              string
	Email             string
	Phone             string
	Skills            []string
	ResumeURL         string
	YearsOfExperience *int
	Source            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ActivityType は応募者のタイムラインに記録される出来事の種類です。
type ActivityType string

const (
	ActivityApplied            ActivityType = "applied"
	ActivityStageChange        ActivityType = "stage_change"
	ActivityInterviewScheduled ActivityType = "interview_scheduled"
	ActivityInterviewStatus    ActivityType = "interview_status"
	ActivityFeedbackSubmitted  ActivityType = "feedback_submitted"
)

// Activity は応募者タイムラインの 1 件です。追記のみで更新しません。
type Activity struct {
	ID             string
	CompanyID      string
	CandidateID    string
	JobCandidateID *string
	Type           ActivityType
	Description    string
	ActorID        *string
	Metadata       map[string]any
	CreatedAt      time.Time
}
