package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/company"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/user"
)

// CompanyHandler は会社 API のハンドラーです。
type CompanyHandler struct {
	svc company.UseCase
}

// NewCompanyHandler は CompanyHandler を生成します。
func NewCompanyHandler(svc company.UseCase) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

type createCompanyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Create は会社を作成します。
func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	var req createCompanyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.svc.CreateCompany(c.UserContext(), company.CreateCompanyInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toCompanyResponse(created))
}

// Get は認証済みの会社を取得します。
func (h *CompanyHandler) Get(c *fiber.Ctx) error {
	if err := ensureSameCompany(c, c.Params("id")); err != nil {
		return err
	}
	found, err := h.svc.GetCompany(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toCompanyResponse(found))
}

// UserHandler はユーザー API のハンドラーです。
// ユーザーは会社をまたぐ ID のため、参照と更新は本人か自社の所属者に限ります。
type UserHandler struct {
	svc     user.UseCase
	members member.UseCase
}

// NewUserHandler は UserHandler を生成します。
func NewUserHandler(svc user.UseCase, members member.UseCase) *UserHandler {
	return &UserHandler{svc: svc, members: members}
}

type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type updateUserRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status"`
}

// Create はユーザーを作成します。
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.svc.CreateUser(c.UserContext(), user.CreateUserInput{Email: req.Email, Name: req.Name})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(created))
}

// Get はユーザーを取得します。他社のみに所属するユーザーは存在しないものとして扱います。
func (h *UserHandler) Get(c *fiber.Ctx) error {
	p := principalFrom(c)
	visible, err := h.inCallerCompany(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return err
	}
	if !visible {
		return user.ErrUserNotFound
	}
	found, err := h.svc.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(found))
}

// Update はユーザーを更新します。本人か、自社の所属者に対する管理者のみ実行できます。
func (h *UserHandler) Update(c *fiber.Ctx) error {
	p := principalFrom(c)
	if !isSelf(p, c.Params("id")) {
		if p.Role != RoleAdmin {
			return errUserMismatch
		}
		ok, err := h.inCallerCompany(c.UserContext(), p, c.Params("id"))
		if err != nil {
			return err
		}
		if !ok {
			return errUserMismatch
		}
	}
	var req updateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := user.UpdateUserInput{ID: c.Params("id"), Name: req.Name}
	if req.Status != nil {
		status := user.Status(*req.Status)
		in.Status = &status
	}
	updated, err := h.svc.UpdateUser(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(updated))
}

func isSelf(p Principal, userID string) bool {
	return strings.EqualFold(p.UserID, userID)
}

func (h *UserHandler) inCallerCompany(ctx context.Context, p Principal, userID string) (bool, error) {
	if isSelf(p, userID) {
		return true, nil
	}
	return h.members.IsMember(ctx, p.CompanyID, userID)
}
