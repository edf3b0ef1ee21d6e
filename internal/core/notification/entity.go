package notification

import "time"

// Type は通知の種類です。
type Type string

const (
	TypeApplicationCreated Type = "application_created"
	TypeStageChange        Type = "stage_change"
	TypeInterviewScheduled Type = "interview_scheduled"
	TypeInterviewUpdated   Type = "interview_updated"
	TypeFeedbackSubmitted  Type = "feedback_submitted"
	TypeSLABreach          Type = "sla_breach"
)

// Notification は受信者 1 人に対する通知です。
type Notification struct {
	ID        string
	CompanyID string
	UserID    string
	Type      Type
	Title     string
	Message   string
	Payload   map[string]any
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
