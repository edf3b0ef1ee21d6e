package company

import "time"

// Status は会社の状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Company はテナントとなる会社エンティティです。
type Company struct {
	ID        string
	Name      string
	Slug      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
