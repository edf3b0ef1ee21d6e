package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
)

// MemberHandler は会社所属 API のハンドラーです。
type MemberHandler struct {
	svc member.UseCase
}

// NewMemberHandler は MemberHandler を生成します。
func NewMemberHandler(svc member.UseCase) *MemberHandler {
	return &MemberHandler{svc: svc}
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type updateMemberRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

// List は会社の所属一覧を返します。
func (h *MemberHandler) List(c *fiber.Ctx) error {
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	pageSize, pageToken, err := pageQuery(c)
	if err != nil {
		return err
	}
	in := member.ListMembersInput{CompanyID: companyID, PageSize: pageSize, PageToken: pageToken}
	if v := optionalQuery(c, "role"); v != nil {
		role := member.Role(*v)
		in.Role = &role
	}
	if v := optionalQuery(c, "status"); v != nil {
		status := member.Status(*v)
		in.Status = &status
	}

	result, err := h.svc.ListMembers(c.UserContext(), in)
	if err != nil {
		return err
	}
	members := make([]memberResponse, 0, len(result.Members))
	for _, m := range result.Members {
		members = append(members, toMemberResponse(m))
	}
	return c.JSON(fiber.Map{"members": members, "nextPageToken": result.NextPageToken})
}

// Add はユーザーを会社に所属させます。
func (h *MemberHandler) Add(c *fiber.Ctx) error {
	var req addMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	created, err := h.svc.AddMember(c.UserContext(), member.AddMemberInput{
		CompanyID: principalFrom(c).CompanyID,
		UserID:    req.UserID,
		Role:      member.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toMemberResponse(created))
}

// Update は所属の役割や状態を変更します。
func (h *MemberHandler) Update(c *fiber.Ctx) error {
	var req updateMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := member.UpdateMemberInput{CompanyID: principalFrom(c).CompanyID, ID: c.Params("id")}
	if req.Role != nil {
		role := member.Role(*req.Role)
		in.Role = &role
	}
	if req.Status != nil {
		status := member.Status(*req.Status)
		in.Status = &status
	}
	updated, err := h.svc.UpdateMember(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(toMemberResponse(updated))
}

// Remove は所属を削除します。
func (h *MemberHandler) Remove(c *fiber.Ctx) error {
	if err := h.svc.RemoveMember(c.UserContext(), principalFrom(c).CompanyID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
