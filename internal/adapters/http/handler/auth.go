package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
)

const (
	localUserID    = "userId"
	localCompanyID = "companyId"
	localRole      = "role"

	// RoleAdmin は会社の管理者ロールです。
	RoleAdmin = "admin"
)

var (
	errTenantMismatch = apperr.Forbidden("companyId does not match the authenticated company")
	errUserMismatch   = apperr.Forbidden("userId does not match the authenticated user")
	errAdminOnly      = apperr.Forbidden("admin role is required")
)

// Claims は外部認証基盤が発行する JWT のクレームです。Subject がユーザー ID です。
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// Principal は認証済みの呼び出し元です。
type Principal struct {
	UserID    string
	CompanyID string
	Role      string
}

// NewAuthMiddleware は HS256 で署名された Bearer トークンを検証し、呼び出し元を Locals に格納します。
func NewAuthMiddleware(secret, expectedIssuer string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}
		tokenStr := authHeader
		if scheme, rest, ok := strings.Cut(authHeader, " "); ok && strings.EqualFold(scheme, "Bearer") {
			tokenStr = strings.TrimSpace(rest)
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
		if expectedIssuer != "" {
			opts = append(opts, jwt.WithIssuer(expectedIssuer))
		}
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			return secretBytes, nil
		}, opts...)
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		if claims.Subject == "" || claims.CompanyID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token must carry subject and company_id")
		}

		c.Locals(localUserID, claims.Subject)
		c.Locals(localCompanyID, claims.CompanyID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// RequireRole は呼び出し元のロールが role であることを要求します。
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if principalFrom(c).Role != role {
			return errAdminOnly
		}
		return c.Next()
	}
}

func principalFrom(c *fiber.Ctx) Principal {
	userID, _ := c.Locals(localUserID).(string)
	companyID, _ := c.Locals(localCompanyID).(string)
	role, _ := c.Locals(localRole).(string)
	return Principal{UserID: userID, CompanyID: companyID, Role: role}
}

// companyScope は操作対象の会社 ID を返します。companyId が指定されていればトークンの会社と一致する必要があります。
func companyScope(c *fiber.Ctx) (string, error) {
	p := principalFrom(c)
	if q := strings.TrimSpace(c.Query("companyId")); q != "" && !strings.EqualFold(q, p.CompanyID) {
		return "", errTenantMismatch
	}
	return p.CompanyID, nil
}

// userScope は操作対象のユーザー ID を返します。userId が指定されていればトークンの利用者と一致する必要があります。
func userScope(c *fiber.Ctx) (string, error) {
	p := principalFrom(c)
	if q := strings.TrimSpace(c.Query("userId")); q != "" && !strings.EqualFold(q, p.UserID) {
		return "", errUserMismatch
	}
	return p.UserID, nil
}

// ensureSameCompany は本文で指定された会社 ID がトークンと一致するかを確認します。
func ensureSameCompany(c *fiber.Ctx, companyID string) error {
	if companyID != "" && !strings.EqualFold(companyID, principalFrom(c).CompanyID) {
		return errTenantMismatch
	}
	return nil
}
