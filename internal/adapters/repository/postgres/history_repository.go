package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const historyColumns = `id, company_id, job_candidate_id, stage_id, stage_name, entered_at, exited_at, comment, moved_by`

// HistoryRepository は PostgreSQL を利用したステージ履歴の永続化実装です。行は追記と退出時刻の設定のみ行います。
type HistoryRepository struct {
	pool pgdb.Queryer
}

// NewHistoryRepository は HistoryRepository を生成します。
func NewHistoryRepository(pool pgdb.Queryer) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// CloseOpen は滞在中の行に退出時刻を設定して返します。滞在中の行が無ければ nil を返します。
func (r *HistoryRepository) CloseOpen(ctx context.Context, jobCandidateID string, exitedAt time.Time) (*pipeline.StageHistory, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE stage_history
           SET exited_at = $1
         WHERE job_candidate_id = $2 AND exited_at IS NULL
        RETURNING `+historyColumns,
		exitedAt, jobCandidateID)

	closed, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return closed, nil
}

// Open は新しい滞在中の行を追加します。
func (r *HistoryRepository) Open(ctx context.Context, h *pipeline.StageHistory) (*pipeline.StageHistory, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO stage_history (company_id, job_candidate_id, stage_id, stage_name, entered_at, comment, moved_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+historyColumns,
		h.CompanyID, h.JobCandidateID, h.StageID, h.StageName, h.EnteredAt, h.Comment, nullableString(h.MovedBy))

	opened, err := scanHistory(row)
	if err != nil {
		if code, _ := pgErrorCode(err); code == uniqueViolationCode {
			return nil, pipeline.ErrConcurrentStageChange
		}
		return nil, err
	}
	return opened, nil
}

// ListByJobCandidate は応募の履歴を入場順に返します。
func (r *HistoryRepository) ListByJobCandidate(ctx context.Context, jobCandidateID string) ([]*pipeline.StageHistory, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+historyColumns+`
          FROM stage_history
         WHERE job_candidate_id = $1
         ORDER BY entered_at, exited_at NULLS LAST, id
    `, jobCandidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*pipeline.StageHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// scanHistory は pgx.ErrNoRows をそのまま返します。
func scanHistory(row pgx.Row) (*pipeline.StageHistory, error) {
	var h pipeline.StageHistory
	if err := row.Scan(
		&h.ID,
		&h.CompanyID,
		&h.JobCandidateID,
		&h.StageID,
		&h.StageName,
		&h.EnteredAt,
		&h.ExitedAt,
		&h.Comment,
		&h.MovedBy,
	); err != nil {
		return nil, err
	}
	return &h, nil
}
