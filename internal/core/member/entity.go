package member

import "time"

// Role は会社内での役割です。通知の宛先判定には使いません。
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleRecruiter     Role = "recruiter"
	RoleHiringManager Role = "hiring_manager"
	RoleInterviewer   Role = "interviewer"
)

// Status は所属の状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// users.status の有効値。
const userStatusActive = "active"

// Member はユーザーの会社への所属を表すエンティティです。
type Member struct {
	ID        string
	CompanyID string
	UserID    string
	Role      Role
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	User      *UserSnapshot
}

// UserSnapshot は所属に紐づくユーザー情報のスナップショットです。
type UserSnapshot struct {
	ID     string
	Email  string
	Name   string
	Status string
}
