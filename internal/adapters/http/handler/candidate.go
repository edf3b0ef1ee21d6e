package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
)

// CandidateHandler は応募者 API のハンドラーです。
type CandidateHandler struct {
	svc candidate.UseCase
}

// NewCandidateHandler は CandidateHandler を生成します。
func NewCandidateHandler(svc candidate.UseCase) *CandidateHandler {
	return &CandidateHandler{svc: svc}
}

type createCandidateRequest struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	Skills            []string `json:"skills"`
	ResumeURL         string   `json:"resumeUrl"`
	YearsOfExperience *int     `json:"yearsOfExperience"`
	Source            string   `json:"source"`
}

type updateCandidateRequest struct {
	Name              *string   `json:"name"`
	Email             *string   `json:"email"`
	Phone             *string   `json:"phone"`
	Skills            *[]string `json:"skills"`
	ResumeURL         *string   `json:"resumeUrl"`
	YearsOfExperience *int      `json:"yearsOfExperience"`
	Source            *string   `json:"source"`
}

// Create は応募者を登録します。
func (h *CandidateHandler) Create(c *fiber.Ctx) error {
	var req createCandidateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.svc.CreateCandidate(c.UserContext(), candidate.CreateCandidateInput{
		CompanyID:         principalFrom(c).CompanyID,
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Skills:            req.Skills,
		ResumeURL:         req.ResumeURL,
		YearsOfExperience: req.YearsOfExperience,
		Source:            req.Source,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toCandidateResponse(created))
}

// List は応募者の一覧を返します。
func (h *CandidateHandler) List(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	pageSize, pageToken, err := pageQuery(c)
	if err != nil {
		return err
	}
	result, err := h.svc.ListCandidates(c.UserContext(), candidate.ListCandidatesInput{
		CompanyID: companyID,
		Search:    c.Query("search"),
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return err
	}
	candidates := make([]candidateResponse, 0, len(result.Candidates))
	for _, cand := range result.Candidates {
		candidates = append(candidates, toCandidateResponse(cand))
	}
	return c.JSON(fiber.Map{"candidates": candidates, "nextPageToken": result.NextPageToken})
}

// Get は応募者を返します。
func (h *CandidateHandler) Get(c *fiber.Ctx) error {
	found, err := h.svc.GetCandidate(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toCandidateResponse(found))
}

// Update は応募者のプロフィールを更新します。
func (h *CandidateHandler) Update(c *fiber.Ctx) error {
	var req updateCandidateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.svc.UpdateCandidate(c.UserContext(), candidate.UpdateCandidateInput{
		CompanyID:         principalFrom(c).CompanyID,
		ID:                c.Params("id"),
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Skills:            req.Skills,
		ResumeURL:         req.ResumeURL,
		YearsOfExperience: req.YearsOfExperience,
		Source:            req.Source,
	})
	if err != nil {
		return err
	}
	return c.JSON(toCandidateResponse(updated))
}

// Activities は応募者のタイムラインを新しい順に返します。
func (h *CandidateHandler) Activities(c *fiber.Ctx) error {
	pageSize, pageToken, err := pageQuery(c)
	if err != nil {
		return err
	}
	result, err := h.svc.ListActivities(c.UserContext(), candidate.ListActivitiesInput{
		CompanyID:   principalFrom(c).CompanyID,
		CandidateID: c.Params("id"),
		PageSize:    pageSize,
		PageToken:   pageToken,
	})
	if err != nil {
		return err
	}
	activities := make([]activityResponse, 0, len(result.Activities))
	for _, a := range result.Activities {
		activities = append(activities, toActivityResponse(a))
	}
	return c.JSON(fiber.Map{"activities": activities, "nextPageToken": result.NextPageToken})
}
