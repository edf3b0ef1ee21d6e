package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/interview"
)

// InterviewHandler は面接 API のハンドラーです。
type InterviewHandler struct {
	svc interview.UseCase
}

// NewInterviewHandler は InterviewHandler を生成します。
func NewInterviewHandler(svc interview.UseCase) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

type scheduleInterviewRequest struct {
	ApplicationID   string    `json:"applicationId"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Mode            string    `json:"mode"`
	Location        string    `json:"location"`
	Panel           []string  `json:"panel"`
}

type updateInterviewStatusRequest struct {
	Status string `json:"status"`
}

type submitFeedbackRequest struct {
	Rating         int    `json:"rating"`
	Recommendation string `json:"recommendation"`
	Notes          string `json:"notes"`
}

// Schedule は面接を予定します。
func (h *InterviewHandler) Schedule(c *fiber.Ctx) error {
	var req scheduleInterviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	created, err := h.svc.Schedule(c.UserContext(), interview.ScheduleInput{
		CompanyID:       p.CompanyID,
		JobCandidateID:  req.ApplicationID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Mode:            interview.Mode(req.Mode),
		Location:        req.Location,
		Panel:           req.Panel,
		ActorID:         p.UserID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toInterviewResponse(created))
}

// Get は面接を評価付きで返します。
func (h *InterviewHandler) Get(c *fiber.Ctx) error {
	found, err := h.svc.Get(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toInterviewResponse(found))
}

// ListByApplication は応募に紐づく面接を返します。
func (h *InterviewHandler) ListByApplication(c *fiber.Ctx) error {
	found, err := h.svc.ListByApplication(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]interviewResponse, 0, len(found))
	for _, iv := range found {
		items = append(items, toInterviewResponse(iv))
	}
	return c.JSON(fiber.Map{"interviews": items})
}

// UpdateStatus は面接の状態を遷移させます。
func (h *InterviewHandler) UpdateStatus(c *fiber.Ctx) error {
	var req updateInterviewStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	updated, err := h.svc.UpdateStatus(c.UserContext(), interview.UpdateStatusInput{
		CompanyID: p.CompanyID,
		ID:        c.Params("id"),
		Status:    interview.Status(req.Status),
		ActorID:   p.UserID,
	})
	if err != nil {
		return err
	}
	return c.JSON(toInterviewResponse(updated))
}

// SubmitFeedback は認証済みの面接官として評価を登録します。
func (h *InterviewHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req submitFeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	created, err := h.svc.SubmitFeedback(c.UserContext(), interview.SubmitFeedbackInput{
		CompanyID:      p.CompanyID,
		InterviewID:    c.Params("id"),
		InterviewerID:  p.UserID,
		Rating:         req.Rating,
		Recommendation: interview.Recommendation(req.Recommendation),
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toFeedbackResponse(created))
}
