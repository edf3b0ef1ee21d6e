package handler

import (
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/company"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/interview"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/user"
)

type companyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toCompanyResponse(c *company.Company) companyResponse {
	return companyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type memberResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toMemberResponse(m *member.Member) memberResponse {
	resp := memberResponse{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		UserID:    m.UserID,
		Role:      string(m.Role),
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.User != nil {
		resp.Email = m.User.Email
		resp.Name = m.User.Name
	}
	return resp
}

type stageResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Mandatory bool   `json:"mandatory"`
}

func toStageResponse(s *job.Stage) stageResponse {
	return stageResponse{ID: s.ID, Name: s.Name, Position: s.Position, Mandatory: s.Mandatory}
}

type jobResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"companyId"`
	Title       string          `json:"title"`
	Department  string          `json:"department"`
	RecruiterID *string         `json:"recruiterId"`
	Status      string          `json:"status"`
	Stages      []stageResponse `json:"stages,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toJobResponse(j *job.Job) jobResponse {
	resp := jobResponse{
		ID:          j.ID,
		CompanyID:   j.CompanyID,
		Title:       j.Title,
		Department:  j.Department,
		RecruiterID: j.RecruiterID,
		Status:      string(j.Status),
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	for _, s := range j.Stages {
		resp.Stages = append(resp.Stages, toStageResponse(s))
	}
	return resp
}

type candidateResponse struct {
	ID                string    `json:"id"`
	CompanyID         string    `json:"companyId"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Skills            []string  `json:"skills"`
	ResumeURL         string    `json:"resumeUrl"`
	YearsOfExperience *int      `json:"yearsOfExperience"`
	Source            string    `json:"source"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toCandidateResponse(c *candidate.Candidate) candidateResponse {
	skills := c.Skills
	if skills == nil {
		skills = []string{}
	}
	return candidateResponse{
		ID:                c.ID,
		CompanyID:         c.CompanyID,
		Name:              c.Name,
		Email:             c.Email,
		Phone:             c.Phone,
		Skills:            skills,
		ResumeURL:         c.ResumeURL,
		YearsOfExperience: c.YearsOfExperience,
		Source:            c.Source,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

type activityResponse struct {
	ID             string         `json:"id"`
	CandidateID    string         `json:"candidateId"`
	JobCandidateID *string        `json:"applicationId"`
	Type           string         `json:"type"`
	Description    string         `json:"description"`
	ActorID        *string        `json:"actorId"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

func toActivityResponse(a *candidate.Activity) activityResponse {
	return activityResponse{
		ID:             a.ID,
		CandidateID:    a.CandidateID,
		JobCandidateID: a.JobCandidateID,
		Type:           string(a.Type),
		Description:    a.Description,
		ActorID:        a.ActorID,
		Metadata:       a.Metadata,
		CreatedAt:      a.CreatedAt,
	}
}

type applicationResponse struct {
	ID               string    `json:"id"`
	CompanyID        string    `json:"companyId"`
	JobID            string    `json:"jobId"`
	JobTitle         string    `json:"jobTitle,omitempty"`
	CandidateID      string    `json:"candidateId"`
	CandidateName    string    `json:"candidateName,omitempty"`
	CurrentStageID   string    `json:"currentStageId"`
	CurrentStageName string    `json:"currentStageName,omitempty"`
	AppliedAt        time.Time `json:"appliedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toApplicationResponse(jc *pipeline.JobCandidate) applicationResponse {
	return applicationResponse{
		ID:               jc.ID,
		CompanyID:        jc.CompanyID,
		JobID:            jc.JobID,
		JobTitle:         jc.JobTitle,
		CandidateID:      jc.CandidateID,
		CandidateName:    jc.CandidateName,
		CurrentStageID:   jc.CurrentStageID,
		CurrentStageName: jc.CurrentStageName,
		AppliedAt:        jc.AppliedAt,
		UpdatedAt:        jc.UpdatedAt,
	}
}

type historyResponse struct {
	ID        string     `json:"id"`
	StageID   string     `json:"stageId"`
	StageName string     `json:"stageName"`
	EnteredAt time.Time  `json:"enteredAt"`
	ExitedAt  *time.Time `json:"exitedAt"`
	Comment   string     `json:"comment,omitempty"`
	MovedBy   *string    `json:"movedBy"`
}

func toHistoryResponse(h *pipeline.StageHistory) historyResponse {
	return historyResponse{
		ID:        h.ID,
		StageID:   h.StageID,
		StageName: h.StageName,
		EnteredAt: h.EnteredAt,
		ExitedAt:  h.ExitedAt,
		Comment:   h.Comment,
		MovedBy:   h.MovedBy,
	}
}

type feedbackResponse struct {
	ID             string    `json:"id"`
	InterviewerID  string    `json:"interviewerId"`
	Rating         int       `json:"rating"`
	Recommendation string    `json:"recommendation"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toFeedbackResponse(fb *interview.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:             fb.ID,
		InterviewerID:  fb.InterviewerID,
		Rating:         fb.Rating,
		Recommendation: string(fb.Recommendation),
		Notes:          fb.Notes,
		CreatedAt:      fb.CreatedAt,
	}
}

type interviewResponse struct {
	ID              string             `json:"id"`
	ApplicationID   string             `json:"applicationId"`
	ScheduledAt     time.Time          `json:"scheduledAt"`
	DurationMinutes int                `json:"durationMinutes"`
	Mode            string             `json:"mode"`
	Location        string             `json:"location,omitempty"`
	Status          string             `json:"status"`
	Panel           []string           `json:"panel"`
	CreatedBy       string             `json:"createdBy,omitempty"`
	Feedback        []feedbackResponse `json:"feedback"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func toInterviewResponse(iv *interview.Interview) interviewResponse {
	resp := interviewResponse{
		ID:              iv.ID,
		ApplicationID:   iv.JobCandidateID,
		ScheduledAt:     iv.ScheduledAt,
		DurationMinutes: iv.DurationMinutes,
		Mode:            string(iv.Mode),
		Location:        iv.Location,
		Status:          string(iv.Status),
		Panel:           iv.Panel,
		CreatedBy:       iv.CreatedBy,
		Feedback:        []feedbackResponse{},
		CreatedAt:       iv.CreatedAt,
		UpdatedAt:       iv.UpdatedAt,
	}
	if resp.Panel == nil {
		resp.Panel = []string{}
	}
	for _, fb := range iv.Feedback {
		resp.Feedback = append(resp.Feedback, toFeedbackResponse(fb))
	}
	return resp
}

type notificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	IsRead    bool           `json:"isRead"`
	ReadAt    *time.Time     `json:"readAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Payload:   n.Payload,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
