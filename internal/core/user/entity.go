package user

import "time"

// Status はユーザーの状態を表します。
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User は採用担当者などのログイン主体です。会社への所属は member で表現します。
type User struct {
	ID        string
	Email     string
	Name      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
