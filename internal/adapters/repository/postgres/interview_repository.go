package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/interview"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const (
	interviewColumns = `id, company_id, job_candidate_id, scheduled_at, duration_minutes, mode, location, status, created_by, created_at, updated_at`
	feedbackColumns  = `id, company_id, interview_id, interviewer_id, rating, recommendation, notes, created_at`
)

// InterviewRepository は PostgreSQL を利用した面接と評価の永続化実装です。
type InterviewRepository struct {
	pool pgdb.Queryer
}

// NewInterviewRepository は InterviewRepository を生成します。
func NewInterviewRepository(pool pgdb.Queryer) *InterviewRepository {
	return &InterviewRepository{pool: pool}
}

// Create は面接と面接官を登録します。呼び出し側のトランザクション内で実行されることを前提とします。
func (r *InterviewRepository) Create(ctx context.Context, iv *interview.Interview) (*interview.Interview, error) {
	var createdBy any
	if iv.CreatedBy != "" {
		createdBy = iv.CreatedBy
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO interviews (company_id, job_candidate_id, scheduled_at, duration_minutes, mode, location, status, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+interviewColumns,
		iv.CompanyID, iv.JobCandidateID, iv.ScheduledAt, iv.DurationMinutes, iv.Mode, iv.Location, iv.Status,
		createdBy, iv.CreatedAt, iv.UpdatedAt)

	created, err := scanInterview(row)
	if err != nil {
		return nil, translateInterviewPgError(err)
	}

	for _, userID := range iv.Panel {
		if _, err := exec.Exec(ctx, `INSERT INTO interview_panelists (interview_id, user_id) VALUES ($1, $2)`, created.ID, userID); err != nil {
			return nil, translateInterviewPgError(err)
		}
	}
	created.Panel = append([]string(nil), iv.Panel...)
	return created, nil
}

// FindByID は会社内の面接を面接官と評価付きで取得します。
func (r *InterviewRepository) FindByID(ctx context.Context, companyID, id string) (*interview.Interview, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE company_id = $1 AND id = $2`, companyID, id)

	found, err := scanInterview(row)
	if err != nil {
		return nil, translateInterviewPgError(err)
	}
	if err := r.loadDetails(ctx, exec, []*interview.Interview{found}); err != nil {
		return nil, err
	}
	return found, nil
}

// UpdateStatus は面接の状態を更新します。
func (r *InterviewRepository) UpdateStatus(ctx context.Context, companyID, id string, status interview.Status, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE interviews
           SET status = $1,
               updated_at = $2
         WHERE company_id = $3 AND id = $4
    `, status, at, companyID, id)
	if err != nil {
		return translateInterviewPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return interview.ErrInterviewNotFound
	}
	return nil
}

// ListByJobCandidate は応募に紐づく面接を予定日時順に返します。
func (r *InterviewRepository) ListByJobCandidate(ctx context.Context, companyID, jobCandidateID string) ([]*interview.Interview, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+interviewColumns+`
          FROM interviews
         WHERE company_id = $1 AND job_candidate_id = $2
         ORDER BY scheduled_at, id
    `, companyID, jobCandidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interviews []*interview.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadDetails(ctx, exec, interviews); err != nil {
		return nil, err
	}
	return interviews, nil
}

// CreateFeedback は面接官の評価を登録します。
func (r *InterviewRepository) CreateFeedback(ctx context.Context, fb *interview.Feedback) (*interview.Feedback, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO interview_feedback (company_id, interview_id, interviewer_id, rating, recommendation, notes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+feedbackColumns,
		fb.CompanyID, fb.InterviewID, fb.InterviewerID, fb.Rating, fb.Recommendation, fb.Notes, fb.CreatedAt)

	created, err := scanFeedback(row)
	if err != nil {
		return nil, translateInterviewPgError(err)
	}
	return created, nil
}

// loadDetails は面接官と評価をまとめて読み込みます。
func (r *InterviewRepository) loadDetails(ctx context.Context, exec pgdb.Queryer, interviews []*interview.Interview) error {
	if len(interviews) == 0 {
		return nil
	}
	byID := make(map[string]*interview.Interview, len(interviews))
	ids := make([]string, 0, len(interviews))
	for _, iv := range interviews {
		byID[iv.ID] = iv
		ids = append(ids, iv.ID)
	}

	panelRows, err := exec.Query(ctx, `
        SELECT interview_id, user_id
          FROM interview_panelists
         WHERE interview_id = ANY($1)
         ORDER BY interview_id, user_id
    `, ids)
	if err != nil {
		return err
	}
	for panelRows.Next() {
		var interviewID, userID string
		if err := panelRows.Scan(&interviewID, &userID); err != nil {
			panelRows.Close()
			return err
		}
		if iv, ok := byID[interviewID]; ok {
			iv.Panel = append(iv.Panel, userID)
		}
	}
	panelRows.Close()
	if err := panelRows.Err(); err != nil {
		return err
	}

	feedbackRows, err := exec.Query(ctx, `
        SELECT `+feedbackColumns+`
          FROM interview_feedback
         WHERE interview_id = ANY($1)
         ORDER BY created_at, id
    `, ids)
	if err != nil {
		return err
	}
	defer feedbackRows.Close()
	for feedbackRows.Next() {
		fb, err := scanFeedback(feedbackRows)
		if err != nil {
			return err
		}
		if iv, ok := byID[fb.InterviewID]; ok {
			iv.Feedback = append(iv.Feedback, fb)
		}
	}
	return feedbackRows.Err()
}

func scanInterview(row pgx.Row) (*interview.Interview, error) {
	var (
		iv        interview.Interview
		mode      string
		status    string
		createdBy *string
	)
	if err := row.Scan(
		&iv.ID,
		&iv.CompanyID,
		&iv.JobCandidateID,
		&iv.ScheduledAt,
		&iv.DurationMinutes,
		&mode,
		&iv.Location,
		&status,
		&createdBy,
		&iv.CreatedAt,
		&iv.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, interview.ErrInterviewNotFound
		}
		return nil, err
	}
	iv.Mode = interview.Mode(mode)
	iv.Status = interview.Status(status)
	if createdBy != nil {
		iv.CreatedBy = *createdBy
	}
	return &iv, nil
}

func scanFeedback(row pgx.Row) (*interview.Feedback, error) {
	var (
		fb  interview.Feedback
		rec string
	)
	if err := row.Scan(&fb.ID, &fb.CompanyID, &fb.InterviewID, &fb.InterviewerID, &fb.Rating, &rec, &fb.Notes, &fb.CreatedAt); err != nil {
		return nil, err
	}
	fb.Recommendation = interview.Recommendation(rec)
	return &fb, nil
}

func translateInterviewPgError(err error) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case uniqueViolationCode:
		if constraint == "interview_feedback_interview_id_interviewer_id_key" {
			return interview.ErrFeedbackAlreadySubmitted
		}
	case foreignKeyViolationCode:
		if constraint == "interview_panelists_user_id_fkey" {
			return interview.ErrPanelistNotMember
		}
	}
	return err
}
