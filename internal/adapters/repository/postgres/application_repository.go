package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const applicationSelect = `
        SELECT jc.id,
               jc.company_id,
               jc.job_id,
               jc.candidate_id,
               jc.current_stage_id,
               jc.applied_at,
               jc.updated_at,
               c.name,
               j.title,
               s.name
          FROM job_candidates jc
          JOIN candidates c ON c.id = jc.candidate_id
          JOIN jobs j ON j.id = jc.job_id
          JOIN pipeline_stages s ON s.id = jc.current_stage_id`

// ApplicationRepository は PostgreSQL を利用した応募の永続化実装です。
type ApplicationRepository struct {
	pool pgdb.Queryer
}

// NewApplicationRepository は ApplicationRepository を生成します。
func NewApplicationRepository(pool pgdb.Queryer) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

// Create は応募を登録します。
func (r *ApplicationRepository) Create(ctx context.Context, jc *pipeline.JobCandidate) (*pipeline.JobCandidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO job_candidates (company_id, job_id, candidate_id, current_stage_id, applied_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id, company_id, job_id, candidate_id, current_stage_id, applied_at, updated_at
        )
        SELECT i.id, i.company_id, i.job_id, i.candidate_id, i.current_stage_id, i.applied_at, i.updated_at,
               c.name, j.title, s.name
          FROM inserted i
          JOIN candidates c ON c.id = i.candidate_id
          JOIN jobs j ON j.id = i.job_id
          JOIN pipeline_stages s ON s.id = i.current_stage_id
    `,
		jc.CompanyID, jc.JobID, jc.CandidateID, jc.CurrentStageID, jc.AppliedAt, jc.UpdatedAt)

	created, err := scanApplication(row)
	if err != nil {
		return nil, translateApplicationPgError(err)
	}
	return created, nil
}

// FindByID は会社内の応募を取得します。
func (r *ApplicationRepository) FindByID(ctx context.Context, companyID, id string) (*pipeline.JobCandidate, error) {
	return r.findOne(ctx, applicationSelect+`
         WHERE jc.company_id = $1 AND jc.id = $2`, companyID, id)
}

// FindByIDForUpdate は応募行をロックして取得します。トランザクション内で呼び出してください。
func (r *ApplicationRepository) FindByIDForUpdate(ctx context.Context, companyID, id string) (*pipeline.JobCandidate, error) {
	return r.findOne(ctx, applicationSelect+`
         WHERE jc.company_id = $1 AND jc.id = $2
           FOR UPDATE OF jc`, companyID, id)
}

// FindByJobAndCandidate は求人と応募者の組から応募を取得します。
func (r *ApplicationRepository) FindByJobAndCandidate(ctx context.Context, companyID, jobID, candidateID string) (*pipeline.JobCandidate, error) {
	return r.findOne(ctx, applicationSelect+`
         WHERE jc.company_id = $1 AND jc.job_id = $2 AND jc.candidate_id = $3`, companyID, jobID, candidateID)
}

// FindByJobAndCandidateForUpdate は求人と応募者の組から応募行をロックして取得します。
func (r *ApplicationRepository) FindByJobAndCandidateForUpdate(ctx context.Context, companyID, jobID, candidateID string) (*pipeline.JobCandidate, error) {
	return r.findOne(ctx, applicationSelect+`
         WHERE jc.company_id = $1 AND jc.job_id = $2 AND jc.candidate_id = $3
           FOR UPDATE OF jc`, companyID, jobID, candidateID)
}

func (r *ApplicationRepository) findOne(ctx context.Context, query string, args ...any) (*pipeline.JobCandidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanApplication(exec.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateApplicationPgError(err)
	}
	return found, nil
}

// UpdateCurrentStage は応募の現在ステージを更新します。
func (r *ApplicationRepository) UpdateCurrentStage(ctx context.Context, companyID, id, stageID string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE job_candidates
           SET current_stage_id = $1,
               updated_at = $2
         WHERE company_id = $3 AND id = $4
    `, stageID, at, companyID, id)
	if err != nil {
		return translateApplicationPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrApplicationNotFound
	}
	return nil
}

// List は応募の一覧を応募日時の昇順で取得します。
func (r *ApplicationRepository) List(ctx context.Context, filter pipeline.ListApplicationsFilter) ([]*pipeline.JobCandidate, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	where.add("jc.company_id = ?", filter.CompanyID)
	if filter.JobID != "" {
		where.add("jc.job_id = ?", filter.JobID)
	}
	if filter.CandidateID != "" {
		where.add("jc.candidate_id = ?", filter.CandidateID)
	}
	if filter.StageID != nil {
		where.add("jc.current_stage_id = ?", *filter.StageID)
	}

	query := applicationSelect + where.clause() + `
         ORDER BY jc.applied_at, jc.id` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	apps := make([]*pipeline.JobCandidate, 0, filter.Limit+1)
	for rows.Next() {
		jc, err := scanApplication(rows)
		if err != nil {
			return nil, "", err
		}
		apps = append(apps, jc)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	apps, next := paging.Trim(apps, filter.Limit, filter.Offset)
	return apps, next, nil
}

func scanApplication(row pgx.Row) (*pipeline.JobCandidate, error) {
	var jc pipeline.JobCandidate
	if err := row.Scan(
		&jc.ID,
		&jc.CompanyID,
		&jc.JobID,
		&jc.CandidateID,
		&jc.CurrentStageID,
		&jc.AppliedAt,
		&jc.UpdatedAt,
		&jc.CandidateName,
		&jc.JobTitle,
		&jc.CurrentStageName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pipeline.ErrApplicationNotFound
		}
		return nil, err
	}
	return &jc, nil
}

func translateApplicationPgError(err error) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case uniqueViolationCode:
		return pipeline.ErrAlreadyApplied
	case foreignKeyViolationCode:
		if constraint == "job_candidates_current_stage_id_fkey" {
			return pipeline.ErrStageNotInJob
		}
	}
	return err
}
