package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
)

// JobHandler は求人 API のハンドラーです。
type JobHandler struct {
	svc      job.UseCase
	pipeline pipeline.UseCase
}

// NewJobHandler は JobHandler を生成します。
func NewJobHandler(svc job.UseCase, pipelineSvc pipeline.UseCase) *JobHandler {
	return &JobHandler{svc: svc, pipeline: pipelineSvc}
}

type stageRequest struct {
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
}

type createJobRequest struct {
	Title       string         `json:"title"`
	Department  string         `json:"department"`
	RecruiterID *string        `json:"recruiterId"`
	Status      *string        `json:"status"`
	Stages      []stageRequest `json:"stages"`
}

type updateJobRequest struct {
	Title       *string `json:"title"`
	Department  *string `json:"department"`
	RecruiterID *string `json:"recruiterId"`
	Status      *string `json:"status"`
}

func toJobStatus(raw *string) *job.Status {
	if raw == nil {
		return nil
	}
	status := job.Status(*raw)
	return &status
}

// Create は求人を作成します。
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req createJobRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := job.CreateJobInput{
		CompanyID:   principalFrom(c).CompanyID,
		Title:       req.Title,
		Department:  req.Department,
		RecruiterID: req.RecruiterID,
		Status:      toJobStatus(req.Status),
	}
	for _, s := range req.Stages {
		in.Stages = append(in.Stages, job.StageInput{Name: s.Name, Mandatory: s.Mandatory})
	}
	created, err := h.svc.CreateJob(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toJobResponse(created))
}

// List は求人の一覧を返します。
func (h *JobHandler) List(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	pageSize, pageToken, err := pageQuery(c)
	if err != nil {
		return err
	}
	result, err := h.svc.ListJobs(c.UserContext(), job.ListJobsInput{
		CompanyID: companyID,
		Status:    toJobStatus(optionalQuery(c, "status")),
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return err
	}
	jobs := make([]jobResponse, 0, len(result.Jobs))
	for _, j := range result.Jobs {
		jobs = append(jobs, toJobResponse(j))
	}
	return c.JSON(fiber.Map{"jobs": jobs, "nextPageToken": result.NextPageToken})
}

// Get は求人をステージ付きで返します。
func (h *JobHandler) Get(c *fiber.Ctx) error {
	found, err := h.svc.GetJob(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toJobResponse(found))
}

// Update は求人を更新します。
func (h *JobHandler) Update(c *fiber.Ctx) error {
	var req updateJobRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.svc.UpdateJob(c.UserContext(), job.UpdateJobInput{
		CompanyID:   principalFrom(c).CompanyID,
		ID:          c.Params("id"),
		Title:       req.Title,
		Department:  req.Department,
		RecruiterID: req.RecruiterID,
		Status:      toJobStatus(req.Status),
	})
	if err != nil {
		return err
	}
	return c.JSON(toJobResponse(updated))
}

// AddStage は求人の末尾にステージを追加します。
func (h *JobHandler) AddStage(c *fiber.Ctx) error {
	var req stageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.svc.AddStage(c.UserContext(), job.AddStageInput{
		CompanyID: principalFrom(c).CompanyID,
		JobID:     c.Params("id"),
		Name:      req.Name,
		Mandatory: req.Mandatory,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toStageResponse(created))
}

type boardColumnResponse struct {
	Stage        stageResponse         `json:"stage"`
	Applications []applicationResponse `json:"applications"`
}

// Pipeline は求人の応募をステージごとにまとめて返します。
func (h *JobHandler) Pipeline(c *fiber.Ctx) error {
	board, err := h.pipeline.Board(c.UserContext(), principalFrom(c).CompanyID, c.Params("id"))
	if err != nil {
		return err
	}
	columns := make([]boardColumnResponse, 0, len(board.Columns))
	for _, col := range board.Columns {
		apps := make([]applicationResponse, 0, len(col.Applications))
		for _, jc := range col.Applications {
			apps = append(apps, toApplicationResponse(jc))
		}
		columns = append(columns, boardColumnResponse{Stage: toStageResponse(col.Stage), Applications: apps})
	}
	return c.JSON(fiber.Map{"job": toJobResponse(board.Job), "columns": columns})
}
