package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const (
	jobColumns   = `id, company_id, title, department, recruiter_id, status, created_at, updated_at`
	stageColumns = `id, job_id, name, position, mandatory, created_at`
)

// JobRepository は PostgreSQL を利用した求人とステージの永続化実装です。
type JobRepository struct {
	pool pgdb.Queryer
}

// NewJobRepository は JobRepository を生成します。
func NewJobRepository(pool pgdb.Queryer) *JobRepository {
	return &JobRepository{pool: pool}
}

// Create は求人とそのステージを作成します。呼び出し側のトランザクション内で実行されることを前提とします。
func (r *JobRepository) Create(ctx context.Context, j *job.Job) (*job.Job, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO jobs (company_id, title, department, recruiter_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+jobColumns,
		j.CompanyID, j.Title, j.Department, nullableString(j.RecruiterID), j.Status, j.CreatedAt, j.UpdatedAt)

	created, err := scanJob(row)
	if err != nil {
		return nil, translateJobPgError(err)
	}

	for _, st := range j.Stages {
		stage := *st
		stage.JobID = created.ID
		inserted, err := r.CreateStage(ctx, &stage)
		if err != nil {
			return nil, err
		}
		created.Stages = append(created.Stages, inserted)
	}
	return created, nil
}

// Update は求人の属性を更新します。ステージは変更しません。
func (r *JobRepository) Update(ctx context.Context, j *job.Job) (*job.Job, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE jobs
           SET title = $1,
               department = $2,
               recruiter_id = $3,
               status = $4,
               updated_at = $5
         WHERE company_id = $6 AND id = $7
        RETURNING `+jobColumns,
		j.Title, j.Department, nullableString(j.RecruiterID), j.Status, j.UpdatedAt, j.CompanyID, j.ID)

	updated, err := scanJob(row)
	if err != nil {
		return nil, translateJobPgError(err)
	}
	updated.Stages = j.Stages
	return updated, nil
}

// FindByID は会社内の求人をステージ付きで取得します。
func (r *JobRepository) FindByID(ctx context.Context, companyID, id string) (*job.Job, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE company_id = $1 AND id = $2`, companyID, id)

	found, err := scanJob(row)
	if err != nil {
		return nil, translateJobPgError(err)
	}

	stages, err := r.ListStages(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	found.Stages = stages
	return found, nil
}

// List は求人の一覧を取得します。ステージは含みません。
func (r *JobRepository) List(ctx context.Context, filter job.ListJobsFilter) ([]*job.Job, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	where.add("company_id = ?", filter.CompanyID)
	if filter.Status != nil {
		where.add("status = ?", *filter.Status)
	}

	query := `
        SELECT ` + jobColumns + `
          FROM jobs` + where.clause() + `
         ORDER BY created_at DESC, id DESC` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	jobs := make([]*job.Job, 0, filter.Limit+1)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, "", err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	jobs, next := paging.Trim(jobs, filter.Limit, filter.Offset)
	return jobs, next, nil
}

// CreateStage はステージを追加します。
func (r *JobRepository) CreateStage(ctx context.Context, s *job.Stage) (*job.Stage, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO pipeline_stages (job_id, name, position, mandatory, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+stageColumns,
		s.JobID, s.Name, s.Position, s.Mandatory, s.CreatedAt)

	created, err := scanStage(row)
	if err != nil {
		return nil, translateJobPgError(err)
	}
	return created, nil
}

// ListStages は求人のステージを表示順に返します。
func (r *JobRepository) ListStages(ctx context.Context, jobID string) ([]*job.Stage, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+stageColumns+`
          FROM pipeline_stages
         WHERE job_id = $1
         ORDER BY position, id
    `, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []*job.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// FindStageByID は会社内の求人に属するステージを取得します。
func (r *JobRepository) FindStageByID(ctx context.Context, companyID, stageID string) (*job.Stage, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT s.id, s.job_id, s.name, s.position, s.mandatory, s.created_at
          FROM pipeline_stages s
          JOIN jobs j ON j.id = s.job_id
         WHERE j.company_id = $1 AND s.id = $2
    `, companyID, stageID)

	return scanStage(row)
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		recruiter *string
		status    string
	)
	if err := row.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Department, &recruiter, &status, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, job.ErrJobNotFound
		}
		return nil, err
	}
	j.RecruiterID = recruiter
	j.Status = job.Status(status)
	return &j, nil
}

func scanStage(row pgx.Row) (*job.Stage, error) {
	var s job.Stage
	if err := row.Scan(&s.ID, &s.JobID, &s.Name, &s.Position, &s.Mandatory, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, job.ErrStageNotFound
		}
		return nil, err
	}
	return &s, nil
}

func translateJobPgError(err error) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case uniqueViolationCode:
		return job.ErrDuplicateStageName
	case foreignKeyViolationCode:
		if constraint == "jobs_recruiter_id_fkey" {
			return job.ErrRecruiterNotMember
		}
	case checkViolationCode:
		return job.ErrInvalidStatus
	}
	return err
}
