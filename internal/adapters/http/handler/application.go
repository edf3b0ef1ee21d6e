package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
)

var errMoverMismatch = apperr.Forbidden("movedBy must be the authenticated user")

// ApplicationHandler は応募とステージ移動 API のハンドラーです。
type ApplicationHandler struct {
	svc pipeline.UseCase
}

// NewApplicationHandler は ApplicationHandler を生成します。
func NewApplicationHandler(svc pipeline.UseCase) *ApplicationHandler {
	return &ApplicationHandler{svc: svc}
}

type applyRequest struct {
	JobID       string `json:"jobId"`
	CandidateID string `json:"candidateId"`
	Comment     string `json:"comment"`
}

type moveRequest struct {
	TargetStageID string `json:"targetStageId"`
	Comment       string `json:"comment"`
	MovedBy       string `json:"movedBy"`
}

type bulkMoveRequest struct {
	CandidateIDs  []string `json:"candidateIds"`
	TargetStageID string   `json:"targetStageId"`
	JobID         string   `json:"jobId"`
	Comment       string   `json:"comment"`
	MovedBy       string   `json:"movedBy"`
}

type moveFailureResponse struct {
	CandidateID string `json:"candidateId"`
	Message     string `json:"message"`
}

type bulkMoveResponse struct {
	Success     bool                  `json:"success"`
	MovedCount  int                   `json:"movedCount"`
	FailedCount int                   `json:"failedCount"`
	Failures    []moveFailureResponse `json:"failures,omitempty"`
}

// resolveMover は移動者を決定します。指定があれば認証済みの利用者と一致する必要があります。
func resolveMover(c *fiber.Ctx, movedBy string) (string, error) {
	p := principalFrom(c)
	movedBy = strings.TrimSpace(movedBy)
	if movedBy == "" {
		return p.UserID, nil
	}
	if !strings.EqualFold(movedBy, p.UserID) {
		return "", errMoverMismatch
	}
	return movedBy, nil
}

// Apply は応募者を求人に応募させます。
func (h *ApplicationHandler) Apply(c *fiber.Ctx) error {
	var req applyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p := principalFrom(c)
	created, err := h.svc.Apply(c.UserContext(), pipeline.ApplyInput{
		CompanyID:   p.CompanyID,
		JobID:       req.JobID,
		CandidateID: req.CandidateID,
		ActorID:     p.UserID,
		Comment:     req.Comment,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toApplicationResponse(created))
}

// List は応募を一覧します。jobId、candidateId、stageId で絞り込めます。
func (h *ApplicationHandler) List(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	pageSize, pageToken, err := pageQuery(c)
	if err != nil {
		return err
	}
	result, err := h.svc.ListApplications(c.UserContext(), pipeline.ListApplicationsInput{
		CompanyID:   companyID,
		JobID:       c.Query("jobId"),
		CandidateID: c.Query("candidateId"),
		StageID:     c.Query("stageId"),
		PageSize:    pageSize,
		PageToken:   pageToken,
	})
	if err != nil {
		return err
	}
	apps := make([]applicationResponse, 0, len(result.Applications))
	for _, jc := range result.Applications {
		apps = append(apps, toApplicationResponse(jc))
	}
	return c.JSON(fiber.Map{"applications": apps, "nextPageToken": result.NextPageToken})
}

// Get は応募を返します。
func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	found, err := h.svc.GetApplication(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toApplicationResponse(found))
}

// History は応募のステージ履歴を返します。
func (h *ApplicationHandler) History(c *fiber.Ctx) error {
	history, err := h.svc.GetStageHistory(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]historyResponse, 0, len(history))
	for _, row := range history {
		items = append(items, toHistoryResponse(row))
	}
	return c.JSON(fiber.Map{"history": items})
}

// Move は応募を別のステージへ移動します。
func (h *ApplicationHandler) Move(c *fiber.Ctx) error {
	var req moveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	mover, err := resolveMover(c, req.MovedBy)
	if err != nil {
		return err
	}
	result, err := h.svc.MoveCandidate(c.UserContext(), pipeline.MoveInput{
		CompanyID:      principalFrom(c).CompanyID,
		JobCandidateID: c.Params("id"),
		TargetStageID:  req.TargetStageID,
		MovedBy:        mover,
		Comment:        req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"application": toApplicationResponse(result.Application),
		"history":     toHistoryResponse(result.History),
	})
}

// BulkMove は同じ求人の複数の応募者をまとめて移動します。個別の失敗は件数として返し、success は一括処理が実行されたことを表します。
func (h *ApplicationHandler) BulkMove(c *fiber.Ctx) error {
	var req bulkMoveRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	mover, err := resolveMover(c, req.MovedBy)
	if err != nil {
		return err
	}
	result, err := h.svc.BulkMove(c.UserContext(), pipeline.BulkMoveInput{
		CompanyID:     principalFrom(c).CompanyID,
		JobID:         req.JobID,
		CandidateIDs:  req.CandidateIDs,
		TargetStageID: req.TargetStageID,
		MovedBy:       mover,
		Comment:       req.Comment,
	})
	if err != nil {
		return err
	}

	resp := bulkMoveResponse{
		Success:     true,
		MovedCount:  result.MovedCount,
		FailedCount: result.FailedCount,
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, moveFailureResponse{CandidateID: f.CandidateID, Message: publicMessage(f.Err)})
	}
	return c.JSON(resp)
}

// publicMessage は分類済みエラーのみメッセージを公開します。
func publicMessage(err error) string {
	if apperr.KindOf(err) == apperr.KindInternal {
		return "internal error"
	}
	return err.Error()
}
