package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const slaConfigColumns = `id, company_id, stage_name, threshold_days, created_at, updated_at`

// SLARepository は PostgreSQL を利用した SLA 設定と評価対象の参照実装です。
type SLARepository struct {
	pool pgdb.Queryer
}

// NewSLARepository は SLARepository を生成します。
func NewSLARepository(pool pgdb.Queryer) *SLARepository {
	return &SLARepository{pool: pool}
}

// ListConfigs は会社の SLA 設定をステージ名順に返します。
func (r *SLARepository) ListConfigs(ctx context.Context, companyID string) ([]*sla.Config, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+slaConfigColumns+`
          FROM sla_configs
         WHERE company_id = $1
         ORDER BY lower(stage_name)
    `, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*sla.Config
	for rows.Next() {
		c, err := scanSLAConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// ReplaceConfigs は会社の SLA 設定を全件置き換えます。
func (r *SLARepository) ReplaceConfigs(ctx context.Context, companyID string, configs []*sla.Config) ([]*sla.Config, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `DELETE FROM sla_configs WHERE company_id = $1`, companyID); err != nil {
		return nil, err
	}

	saved := make([]*sla.Config, 0, len(configs))
	for _, c := range configs {
		row := exec.QueryRow(ctx, `
            INSERT INTO sla_configs (company_id, stage_name, threshold_days, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING `+slaConfigColumns,
			companyID, c.StageName, c.ThresholdDays, c.CreatedAt, c.UpdatedAt)

		created, err := scanSLAConfig(row)
		if err != nil {
			return nil, translateSLAPgError(err)
		}
		saved = append(saved, created)
	}
	return saved, nil
}

// ListOpenEntries は会社内で滞在中のステージ履歴を応募者名と求人名付きで返します。
func (r *SLARepository) ListOpenEntries(ctx context.Context, companyID string) ([]*sla.OpenEntry, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT h.company_id,
               h.job_candidate_id,
               jc.candidate_id,
               c.name,
               jc.job_id,
               j.title,
               h.stage_id,
               h.stage_name,
               h.entered_at
          FROM stage_history h
          JOIN job_candidates jc ON jc.id = h.job_candidate_id
          JOIN candidates c ON c.id = jc.candidate_id
          JOIN jobs j ON j.id = jc.job_id
         WHERE h.company_id = $1
           AND h.exited_at IS NULL
         ORDER BY h.entered_at, h.id
    `, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*sla.OpenEntry
	for rows.Next() {
		var e sla.OpenEntry
		if err := rows.Scan(
			&e.CompanyID,
			&e.JobCandidateID,
			&e.CandidateID,
			&e.CandidateName,
			&e.JobID,
			&e.JobTitle,
			&e.StageID,
			&e.StageName,
			&e.EnteredAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func scanSLAConfig(row pgx.Row) (*sla.Config, error) {
	var c sla.Config
	if err := row.Scan(&c.ID, &c.CompanyID, &c.StageName, &c.ThresholdDays, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func translateSLAPgError(err error) error {
	code, _ := pgErrorCode(err)
	switch code {
	case uniqueViolationCode:
		return sla.ErrDuplicateStageName
	case foreignKeyViolationCode:
		return sla.ErrCompanyNotFound
	case checkViolationCode:
		return sla.ErrInvalidThreshold
	}
	return err
}
