package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

// Service はユーザーに関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock usecase.Clock
	tx    usecase.TransactionManager
}

// UseCase はユーザーユースケースの公開インターフェースです。
type UseCase interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock usecase.Clock, tx usecase.TransactionManager) *Service {
	clock, tx = usecase.Defaults(clock, tx)
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateUserInput はユーザー作成時の入力です。
type CreateUserInput struct {
	Email string
	Name  string
}

// UpdateUserInput はユーザー更新時の入力です。
type UpdateUserInput struct {
	ID     string
	Name   *string
	Status *Status
}

// CreateUser は新しいユーザーを作成します。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var created *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByEmail(txCtx, email)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &User{
			Email:     email,
			Name:      name,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateUser はユーザー情報を更新します。
func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (*User, error) {
	id, err := ids.Normalize("id", in.ID)
	if err != nil {
		return nil, err
	}

	var updated *User
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrInvalidName
			}
			existing.Name = name
		}

		if in.Status != nil {
			if *in.Status != StatusActive && *in.Status != StatusInactive {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// GetUser は ID でユーザーを取得します。
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	userID, err := ids.Normalize("id", id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, userID)
}

// NormalizeEmail はメールアドレスを検証し小文字化します。
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(addr.Address), nil
}
