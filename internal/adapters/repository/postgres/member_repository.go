package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const memberSelect = `
        SELECT m.id,
               m.company_id,
               m.user_id,
               m.role,
               m.status,
               m.created_at,
               m.updated_at,
               u.id,
               u.email,
               u.name,
               u.status
          FROM company_members m
          JOIN users u ON u.id = m.user_id`

// MemberRepository は PostgreSQL を利用した会社所属の永続化実装です。
type MemberRepository struct {
	pool pgdb.Queryer
}

// NewMemberRepository は MemberRepository を生成します。
func NewMemberRepository(pool pgdb.Queryer) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// Create は所属を新規作成します。
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) (*member.Member, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO company_members (company_id, user_id, role, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id, company_id, user_id, role, status, created_at, updated_at
        )
        SELECT i.id, i.company_id, i.user_id, i.role, i.status, i.created_at, i.updated_at,
               u.id, u.email, u.name, u.status
          FROM inserted i
          JOIN users u ON u.id = i.user_id
    `,
		m.CompanyID, m.UserID, m.Role, m.Status, m.CreatedAt, m.UpdatedAt)

	created, err := scanMember(row)
	if err != nil {
		return nil, translateMemberPgError(err)
	}
	return created, nil
}

// Update は所属の役割と状態を更新します。
func (r *MemberRepository) Update(ctx context.Context, m *member.Member) (*member.Member, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH updated AS (
            UPDATE company_members
               SET role = $1,
                   status = $2,
                   updated_at = $3
             WHERE company_id = $4 AND id = $5
            RETURNING id, company_id, user_id, role, status, created_at, updated_at
        )
        SELECT urow.id, urow.company_id, urow.user_id, urow.role, urow.status, urow.created_at, urow.updated_at,
               usr.id, usr.email, usr.name, usr.status
          FROM updated urow
          JOIN users usr ON usr.id = urow.user_id
    `,
		m.Role, m.Status, m.UpdatedAt, m.CompanyID, m.ID)

	updated, err := scanMember(row)
	if err != nil {
		return nil, translateMemberPgError(err)
	}
	return updated, nil
}

// Delete は所属を削除します。
func (r *MemberRepository) Delete(ctx context.Context, companyID, id string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM company_members WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return translateMemberPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return member.ErrMemberNotFound
	}
	return nil
}

// FindByID は会社内の所属を ID で取得します。
func (r *MemberRepository) FindByID(ctx context.Context, companyID, id string) (*member.Member, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, memberSelect+`
         WHERE m.company_id = $1 AND m.id = $2`, companyID, id)

	found, err := scanMember(row)
	if err != nil {
		return nil, translateMemberPgError(err)
	}
	return found, nil
}

// FindByCompanyAndUser は会社 ID とユーザー ID で所属を取得します。
func (r *MemberRepository) FindByCompanyAndUser(ctx context.Context, companyID, userID string) (*member.Member, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, memberSelect+`
         WHERE m.company_id = $1 AND m.user_id = $2`, companyID, userID)

	found, err := scanMember(row)
	if err != nil {
		return nil, translateMemberPgError(err)
	}
	return found, nil
}

// List は会社の所属一覧を取得します。
func (r *MemberRepository) List(ctx context.Context, filter member.ListMembersFilter) ([]*member.Member, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	where.add("m.company_id = ?", filter.CompanyID)
	if filter.Status != nil {
		where.add("m.status = ?", *filter.Status)
	}
	if filter.Role != nil {
		where.add("m.role = ?", *filter.Role)
	}

	query := memberSelect + where.clause() + `
         ORDER BY m.created_at, m.id` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	members := make([]*member.Member, 0, filter.Limit+1)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, "", err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	members, next := paging.Trim(members, filter.Limit, filter.Offset)
	return members, next, nil
}

// ListActiveUserIDs は所属とユーザーの双方が有効なユーザー ID を返します。
func (r *MemberRepository) ListActiveUserIDs(ctx context.Context, companyID string) ([]string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT m.user_id
          FROM company_members m
          JOIN users u ON u.id = m.user_id
         WHERE m.company_id = $1
           AND m.status = 'active'
           AND u.status = 'active'
         ORDER BY m.user_id
    `, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanMember(row pgx.Row) (*member.Member, error) {
	var (
		m          member.Member
		snapshot   member.UserSnapshot
		role       string
		status     string
		userStatus string
	)
	if err := row.Scan(
		&m.ID,
		&m.CompanyID,
		&m.UserID,
		&role,
		&status,
		&m.CreatedAt,
		&m.UpdatedAt,
		&snapshot.ID,
		&snapshot.Email,
		&snapshot.Name,
		&userStatus,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrMemberNotFound
		}
		return nil, err
	}
	m.Role = member.Role(role)
	m.Status = member.Status(status)
	snapshot.Status = userStatus
	m.User = &snapshot
	return &m, nil
}

func translateMemberPgError(err error) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case uniqueViolationCode:
		return member.ErrMemberAlreadyExists
	case foreignKeyViolationCode:
		switch constraint {
		case "company_members_company_id_fkey":
			return member.ErrCompanyNotFound
		case "company_members_user_id_fkey":
			return member.ErrUserNotFound
		}
	case checkViolationCode:
		return member.ErrInvalidRole
	}
	return err
}
