package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const (
	candidateColumns = `id, company_id, name, email, phone, skills, resume_url, years_of_experience, source, created_at, updated_at`
	activityColumns  = `id, company_id, candidate_id, job_candidate_id, type, description, actor_id, metadata, created_at`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CandidateRepository は PostgreSQL を利用した応募者とタイムラインの永続化実装です。
type CandidateRepository struct {
	pool pgdb.Queryer
}

// NewCandidateRepository は CandidateRepository を生成します。
func NewCandidateRepository(pool pgdb.Queryer) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// Create は応募者を登録します。
func (r *CandidateRepository) Create(ctx context.Context, c *candidate.Candidate) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO candidates (company_id, name, email, phone, skills, resume_url, years_of_experience, source, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+candidateColumns,
		c.CompanyID, c.Name, c.Email, c.Phone, skillsOrEmpty(c.Skills), c.ResumeURL, c.YearsOfExperience, c.Source, c.CreatedAt, c.UpdatedAt)

	created, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return created, nil
}

// Update は応募者のプロフィールを更新します。
func (r *CandidateRepository) Update(ctx context.Context, c *candidate.Candidate) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE candidates
           SET name = $1,
               email = $2,
               phone = $3,
               skills = $4,
               resume_url = $5,
               years_of_experience = $6,
               source = $7,
               updated_at = $8
         WHERE company_id = $9 AND id = $10
        RETURNING `+candidateColumns,
		c.Name, c.Email, c.Phone, skillsOrEmpty(c.Skills), c.ResumeURL, c.YearsOfExperience, c.Source, c.UpdatedAt, c.CompanyID, c.ID)

	updated, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return updated, nil
}

// FindByID は会社内の応募者を ID で取得します。
func (r *CandidateRepository) FindByID(ctx context.Context, companyID, id string) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE company_id = $1 AND id = $2`, companyID, id)

	found, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return found, nil
}

// FindByEmail は会社内の応募者をメールアドレスで取得します。
func (r *CandidateRepository) FindByEmail(ctx context.Context, companyID, email string) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE company_id = $1 AND email = $2`, companyID, email)

	found, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return found, nil
}

// List は応募者の一覧を取得します。
func (r *CandidateRepository) List(ctx context.Context, filter candidate.ListCandidatesFilter) ([]*candidate.Candidate, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	where.add("company_id = ?", filter.CompanyID)
	if search := strings.TrimSpace(filter.Search); search != "" {
		where.add("(name ILIKE ? OR email ILIKE ?)", "%"+likeEscaper.Replace(search)+"%")
	}

	query := `
        SELECT ` + candidateColumns + `
          FROM candidates` + where.clause() + `
         ORDER BY created_at DESC, id DESC` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	candidates := make([]*candidate.Candidate, 0, filter.Limit+1)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, "", err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	candidates, next := paging.Trim(candidates, filter.Limit, filter.Offset)
	return candidates, next, nil
}

// CreateActivity はタイムラインへ 1 件追記します。
func (r *CandidateRepository) CreateActivity(ctx context.Context, a *candidate.Activity) (*candidate.Activity, error) {
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO candidate_activities (company_id, candidate_id, job_candidate_id, type, description, actor_id, metadata, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+activityColumns,
		a.CompanyID, a.CandidateID, nullableString(a.JobCandidateID), a.Type, a.Description, nullableString(a.ActorID), metadata, a.CreatedAt)

	created, err := scanActivity(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return created, nil
}

// ListActivities は応募者のタイムラインを新しい順に返します。
func (r *CandidateRepository) ListActivities(ctx context.Context, filter candidate.ListActivitiesFilter) ([]*candidate.Activity, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	where.add("company_id = ?", filter.CompanyID)
	where.add("candidate_id = ?", filter.CandidateID)

	query := `
        SELECT ` + activityColumns + `
          FROM candidate_activities` + where.clause() + `
         ORDER BY created_at DESC, id DESC` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	activities := make([]*candidate.Activity, 0, filter.Limit+1)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, "", err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	activities, next := paging.Trim(activities, filter.Limit, filter.Offset)
	return activities, next, nil
}

func scanCandidate(row pgx.Row) (*candidate.Candidate, error) {
	var c candidate.Candidate
	if err := row.Scan(
		&c.ID,
		&c.CompanyID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Skills,
		&c.ResumeURL,
		&c.YearsOfExperience,
		&c.Source,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, candidate.ErrCandidateNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanActivity(row pgx.Row) (*candidate.Activity, error) {
	var (
		a           candidate.Activity
		activityTyp string
	)
	if err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.CandidateID,
		&a.JobCandidateID,
		&activityTyp,
		&a.Description,
		&a.ActorID,
		&a.Metadata,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, candidate.ErrCandidateNotFound
		}
		return nil, err
	}
	a.Type = candidate.ActivityType(activityTyp)
	return &a, nil
}

func skillsOrEmpty(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}

func translateCandidatePgError(err error) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case uniqueViolationCode:
		return candidate.ErrEmailAlreadyExists
	case foreignKeyViolationCode:
		if constraint == "candidate_activities_candidate_id_fkey" {
			return candidate.ErrCandidateNotFound
		}
	}
	return err
}
