package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
)

// SLAHandler は SLA 設定と評価 API のハンドラーです。
type SLAHandler struct {
	svc sla.UseCase
}

// NewSLAHandler は SLAHandler を生成します。
func NewSLAHandler(svc sla.UseCase) *SLAHandler {
	return &SLAHandler{svc: svc}
}

type slaConfigEntry struct {
	StageName       string `json:"stageName"`
	ThresholdDays   int    `json:"thresholdDays"`
	AtRiskAfterDays int    `json:"atRiskAfterDays,omitempty"`
}

type replaceSLAConfigRequest struct {
	CompanyID string           `json:"companyId"`
	Configs   []slaConfigEntry `json:"configs"`
}

type slaBreachResponse struct {
	CandidateID string `json:"candidateId"`
	StageName   string `json:"stageName"`
	DaysOverdue int    `json:"daysOverdue"`
}

type slaAlertResponse struct {
	ApplicationID string    `json:"applicationId"`
	CandidateID   string    `json:"candidateId"`
	CandidateName string    `json:"candidateName"`
	JobID         string    `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	StageName     string    `json:"stageName"`
	EnteredAt     time.Time `json:"enteredAt"`
	DaysInStage   int       `json:"daysInStage"`
	ThresholdDays int       `json:"thresholdDays"`
	DaysOverdue   int       `json:"daysOverdue"`
	Status        string    `json:"status"`
}

type statusCountsResponse struct {
	OnTrack  int `json:"onTrack"`
	AtRisk   int `json:"atRisk"`
	Breached int `json:"breached"`
}

type roleSummaryResponse struct {
	JobID       string               `json:"jobId"`
	JobTitle    string               `json:"jobTitle"`
	Counts      statusCountsResponse `json:"counts"`
	WorstStatus string               `json:"worstStatus"`
}

func toAlertResponse(e sla.Evaluation) slaAlertResponse {
	return slaAlertResponse{
		ApplicationID: e.JobCandidateID,
		CandidateID:   e.CandidateID,
		CandidateName: e.CandidateName,
		JobID:         e.JobID,
		JobTitle:      e.JobTitle,
		StageName:     e.StageName,
		EnteredAt:     e.EnteredAt,
		DaysInStage:   e.DaysInStage,
		ThresholdDays: e.ThresholdDays,
		DaysOverdue:   e.DaysOverdue,
		Status:        string(e.Status),
	}
}

func toCountsResponse(c sla.StatusCounts) statusCountsResponse {
	return statusCountsResponse{OnTrack: c.OnTrack, AtRisk: c.AtRisk, Breached: c.Breached}
}

func (h *SLAHandler) configResponse(configs []*sla.Config) fiber.Map {
	items := make([]slaConfigEntry, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, slaConfigEntry{
			StageName:       cfg.StageName,
			ThresholdDays:   cfg.ThresholdDays,
			AtRiskAfterDays: h.svc.AtRiskDays(cfg.ThresholdDays),
		})
	}
	return fiber.Map{"configs": items}
}

// GetConfig は会社の閾値設定を返します。
func (h *SLAHandler) GetConfig(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	configs, err := h.svc.GetConfig(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	return c.JSON(h.configResponse(configs))
}

// ReplaceConfig は会社の閾値設定を置き換えます。
func (h *SLAHandler) ReplaceConfig(c *fiber.Ctx) error {
	var req replaceSLAConfigRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := ensureSameCompany(c, req.CompanyID); err != nil {
		return err
	}
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	in := sla.ReplaceConfigInput{CompanyID: companyID, Configs: make([]sla.ConfigInput, 0, len(req.Configs))}
	for _, cfg := range req.Configs {
		in.Configs = append(in.Configs, sla.ConfigInput{StageName: cfg.StageName, ThresholdDays: cfg.ThresholdDays})
	}
	configs, err := h.svc.ReplaceConfig(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(h.configResponse(configs))
}

// Breaches は閾値を超過している応募を返します。
func (h *SLAHandler) Breaches(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	breaches, err := h.svc.CheckBreaches(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	items := make([]slaBreachResponse, 0, len(breaches))
	for _, b := range breaches {
		items = append(items, slaBreachResponse{CandidateID: b.CandidateID, StageName: b.StageName, DaysOverdue: b.DaysOverdue})
	}
	return c.JSON(items)
}

// Alerts は超過中の応募を応募者名と求人名付きで返します。
func (h *SLAHandler) Alerts(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	breaches, err := h.svc.CheckBreaches(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	items := make([]slaAlertResponse, 0, len(breaches))
	for _, b := range breaches {
		items = append(items, toAlertResponse(b))
	}
	return c.JSON(fiber.Map{"slaBreaches": items})
}

// Status は滞在中のすべての応募の評価を返します。
func (h *SLAHandler) Status(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	evaluations, err := h.svc.Evaluate(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	items := make([]slaAlertResponse, 0, len(evaluations))
	for _, e := range evaluations {
		items = append(items, toAlertResponse(e))
	}
	return c.JSON(fiber.Map{"evaluations": items})
}

// Summary は求人ごとの評価集計を返します。
func (h *SLAHandler) Summary(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.RoleSummary(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	roles := make([]roleSummaryResponse, 0, len(summary.Roles))
	for _, r := range summary.Roles {
		roles = append(roles, roleSummaryResponse{
			JobID:       r.JobID,
			JobTitle:    r.JobTitle,
			Counts:      toCountsResponse(r.Counts),
			WorstStatus: string(r.WorstStatus),
		})
	}
	return c.JSON(fiber.Map{"roles": roles, "totals": toCountsResponse(summary.Totals)})
}
