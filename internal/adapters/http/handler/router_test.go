package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret"
	testIssuer  = "ats-auth"
	testCompany = "11111111-1111-1111-1111-111111111111"
	testUser    = "22222222-2222-2222-2222-222222222222"
	otherID     = "99999999-9999-9999-9999-999999999999"
)

type stubPipeline struct {
	pipeline.UseCase

	moveIn     pipeline.MoveInput
	moveErr    error
	bulkIn     pipeline.BulkMoveInput
	bulkResult *pipeline.BulkMoveResult
	bulkErr    error
}

func (s *stubPipeline) MoveCandidate(_ context.Context, in pipeline.MoveInput) (*pipeline.MoveResult, error) {
	s.moveIn = in
	if s.moveErr != nil {
		return nil, s.moveErr
	}
	mover := in.MovedBy
	return &pipeline.MoveResult{
		Application: &pipeline.JobCandidate{ID: in.JobCandidateID, CompanyID: in.CompanyID, CurrentStageID: in.TargetStageID},
		History:     &pipeline.StageHistory{ID: "h-1", StageID: in.TargetStageID, MovedBy: &mover},
	}, nil
}

func (s *stubPipeline) BulkMove(_ context.Context, in pipeline.BulkMoveInput) (*pipeline.BulkMoveResult, error) {
	s.bulkIn = in
	return s.bulkResult, s.bulkErr
}

type stubNotifications struct {
	notification.UseCase

	listIn    notification.ListInput
	result    *notification.ListResult
	readAllID string
}

func (s *stubNotifications) List(_ context.Context, in notification.ListInput) (*notification.ListResult, error) {
	s.listIn = in
	return s.result, nil
}

func (s *stubNotifications) MarkAsRead(_ context.Context, _, _, id string) error {
	if id == otherID {
		return notification.ErrNotificationNotFound
	}
	return nil
}

func (s *stubNotifications) MarkAllAsRead(_ context.Context, _, userID string) (int64, error) {
	s.readAllID = userID
	return 3, nil
}

type stubSLA struct {
	sla.UseCase

	replaced sla.ReplaceConfigInput
	breaches []sla.Evaluation
	err      error
}

func (s *stubSLA) GetConfig(context.Context, string) ([]*sla.Config, error) {
	return []*sla.Config{{StageName: "Screening", ThresholdDays: 5}}, nil
}

func (s *stubSLA) ReplaceConfig(_ context.Context, in sla.ReplaceConfigInput) ([]*sla.Config, error) {
	s.replaced = in
	out := make([]*sla.Config, 0, len(in.Configs))
	for _, cfg := range in.Configs {
		out = append(out, &sla.Config{StageName: cfg.StageName, ThresholdDays: cfg.ThresholdDays})
	}
	return out, nil
}

func (s *stubSLA) CheckBreaches(context.Context, string) ([]sla.Evaluation, error) {
	return s.breaches, s.err
}

func (s *stubSLA) AtRiskDays(thresholdDays int) int {
	return thresholdDays - 1
}

type stubUsers struct {
	user.UseCase

	updated []string
}

func (s *stubUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	return &user.User{ID: id, Email: id + "@example.com", Status: user.StatusActive}, nil
}

func (s *stubUsers) UpdateUser(_ context.Context, in user.UpdateUserInput) (*user.User, error) {
	s.updated = append(s.updated, in.ID)
	out := &user.User{ID: in.ID, Status: user.StatusActive}
	if in.Status != nil {
		out.Status = *in.Status
	}
	return out, nil
}

// stubMembers は companyID ごとの所属ユーザーを保持します。
type stubMembers struct {
	member.UseCase

	byCompany map[string][]string
}

func (s stubMembers) IsMember(_ context.Context, companyID, userID string) (bool, error) {
	for _, id := range s.byCompany[companyID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type stubReadiness struct{ err error }

func (s stubReadiness) Check(context.Context) error { return s.err }

func newTestApp(svc Services) *fiber.App {
	return NewApp(svc, Options{JWTSecret: testSecret, JWTIssuer: testIssuer, RequestTimeout: time.Second})
}

func signToken(t *testing.T, userID, companyID, role string) string {
	t.Helper()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		CompanyID: companyID,
		Role:      role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error body, got %v", body)
	code, _ := detail["code"].(string)
	return code
}

func TestHealth_DoesNotRequireToken(t *testing.T) {
	t.Parallel()

	app := newTestApp(Services{Readiness: stubReadiness{}})
	status, body := doRequest(t, app, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	app = newTestApp(Services{Readiness: stubReadiness{err: errors.New("db down")}})
	status, body = doRequest(t, app, http.MethodGet, "/api/v1/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body["status"])
}

func TestAuth_RejectsMissingOrInvalidToken(t *testing.T) {
	t.Parallel()

	app := newTestApp(Services{Pipeline: &stubPipeline{}})

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/pipeline/move", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(t, body))

	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/pipeline/move", "not-a-jwt", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, status)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: testUser, Issuer: "someone-else"},
		CompanyID:        testCompany,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/pipeline/move", wrongIssuer, map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMove_UsesPrincipalAndMapsErrors(t *testing.T) {
	t.Parallel()

	stub := &stubPipeline{}
	app := newTestApp(Services{Pipeline: stub})
	token := signToken(t, testUser, testCompany, "recruiter")

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/applications/app-1/move", token, map[string]any{
		"targetStageId": "stage-2",
		"comment":       "good fit",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testCompany, stub.moveIn.CompanyID)
	assert.Equal(t, testUser, stub.moveIn.MovedBy)
	assert.Equal(t, "app-1", stub.moveIn.JobCandidateID)
	history := body["history"].(map[string]any)
	assert.Equal(t, testUser, history["movedBy"])

	stub.moveErr = pipeline.ErrStageNotInJob
	status, body = doRequest(t, app, http.MethodPost, "/api/v1/applications/app-1/move", token, map[string]any{"targetStageId": "stage-x"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(apperr.KindValidation), errorCode(t, body))
	fields := body["error"].(map[string]any)["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "targetStageId", fields[0].(map[string]any)["field"])

	stub.moveErr = pipeline.ErrApplicationNotFound
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/applications/app-1/move", token, map[string]any{"targetStageId": "stage-2"})
	assert.Equal(t, http.StatusNotFound, status)

	stub.moveErr = pipeline.ErrConcurrentStageChange
	status, _ = doRequest(t, app, http.MethodPost, "/api/v1/applications/app-1/move", token, map[string]any{"targetStageId": "stage-2"})
	assert.Equal(t, http.StatusConflict, status)

	stub.moveErr = errors.New("connection reset")
	status, body = doRequest(t, app, http.MethodPost, "/api/v1/applications/app-1/move", token, map[string]any{"targetStageId": "stage-2"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"].(map[string]any)["message"])
}

func TestMove_RejectsForeignMover(t *testing.T) {
	t.Parallel()

	stub := &stubPipeline{}
	app := newTestApp(Services{Pipeline: stub})
	token := signToken(t, testUser, testCompany, "recruiter")

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/applications/app-1/move", token, map[string]any{
		"targetStageId": "stage-2",
		"movedBy":       otherID,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(apperr.KindForbidden), errorCode(t, body))
	assert.Empty(t, stub.moveIn.JobCandidateID)
}

func TestBulkMove_ReportsCounts(t *testing.T) {
	t.Parallel()

	stub := &stubPipeline{bulkResult: &pipeline.BulkMoveResult{
		MovedCount:  2,
		FailedCount: 2,
		Failures: []pipeline.MoveFailure{
			{CandidateID: "cand-3", Err: pipeline.ErrApplicationNotFound},
			{CandidateID: "cand-4", Err: errors.New("deadlock detected")},
		},
	}}
	app := newTestApp(Services{Pipeline: stub})
	token := signToken(t, testUser, testCompany, "recruiter")

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/pipeline/move", token, map[string]any{
		"candidateIds":  []string{"cand-1", "cand-2", "cand-3", "cand-4"},
		"targetStageId": "stage-2",
		"jobId":         "job-1",
		"movedBy":       testUser,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["movedCount"])
	assert.EqualValues(t, 2, body["failedCount"])
	failures := body["failures"].([]any)
	require.Len(t, failures, 2)
	assert.Equal(t, "internal error", failures[1].(map[string]any)["message"])
	assert.Equal(t, []string{"cand-1", "cand-2", "cand-3", "cand-4"}, stub.bulkIn.CandidateIDs)
	assert.Equal(t, testCompany, stub.bulkIn.CompanyID)
}

func TestBulkMove_RequestLevelValidation(t *testing.T) {
	t.Parallel()

	stub := &stubPipeline{bulkErr: pipeline.ErrEmptyBulk}
	app := newTestApp(Services{Pipeline: stub})
	token := signToken(t, testUser, testCompany, "recruiter")

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/pipeline/move", token, map[string]any{
		"candidateIds":  []string{},
		"targetStageId": "stage-2",
		"jobId":         "job-1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(apperr.KindValidation), errorCode(t, body))
}

func TestNotifications_ScopedToPrincipal(t *testing.T) {
	t.Parallel()

	stub := &stubNotifications{result: &notification.ListResult{
		Notifications: []*notification.Notification{{ID: "n-1", UserID: testUser, Type: notification.TypeStageChange, Title: "moved"}},
		UnreadCount:   4,
	}}
	app := newTestApp(Services{Notifications: stub})
	token := signToken(t, testUser, testCompany, "recruiter")

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/notifications?userId="+testUser+"&unreadOnly=true", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 4, body["unreadCount"])
	assert.Len(t, body["notifications"].([]any), 1)
	assert.True(t, stub.listIn.UnreadOnly)
	assert.Equal(t, testCompany, stub.listIn.CompanyID)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/notifications?userId="+otherID, token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/notifications?companyId="+otherID, token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/notifications?unreadOnly=maybe", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doRequest(t, app, http.MethodPatch, "/api/v1/notifications/"+otherID+"/read", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doRequest(t, app, http.MethodPost, "/api/v1/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["updated"])
	assert.Equal(t, testUser, stub.readAllID)
}

func TestSLA_ConfigRequiresAdminAndTenant(t *testing.T) {
	t.Parallel()

	stub := &stubSLA{}
	app := newTestApp(Services{SLA: stub})
	recruiter := signToken(t, testUser, testCompany, "recruiter")
	admin := signToken(t, testUser, testCompany, RoleAdmin)
	payload := map[string]any{"configs": []map[string]any{{"stageName": "Interview", "thresholdDays": 10}}}

	status, _ := doRequest(t, app, http.MethodPut, "/api/v1/sla/config", recruiter, payload)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := doRequest(t, app, http.MethodPut, "/api/v1/sla/config", admin, payload)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, testCompany, stub.replaced.CompanyID)
	configs := body["configs"].([]any)
	require.Len(t, configs, 1)
	assert.EqualValues(t, 9, configs[0].(map[string]any)["atRiskAfterDays"])

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/sla/config?companyId="+otherID, recruiter, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSLA_AlertsAndBreaches(t *testing.T) {
	t.Parallel()

	stub := &stubSLA{breaches: []sla.Evaluation{{
		OpenEntry:     sla.OpenEntry{CandidateID: "cand-1", CandidateName: "Ada", JobTitle: "Engineer", StageName: "Screening"},
		ThresholdDays: 5,
		DaysInStage:   8,
		DaysOverdue:   3,
		Status:        sla.StatusBreached,
	}}}
	app := newTestApp(Services{SLA: stub})
	token := signToken(t, testUser, testCompany, "recruiter")

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/sla/alerts?companyId="+testCompany, token, nil)
	require.Equal(t, http.StatusOK, status)
	alerts := body["slaBreaches"].([]any)
	require.Len(t, alerts, 1)
	alert := alerts[0].(map[string]any)
	assert.Equal(t, "Ada", alert["candidateName"])
	assert.Equal(t, "Engineer", alert["jobTitle"])
	assert.EqualValues(t, 8, alert["daysInStage"])
	assert.EqualValues(t, 3, alert["daysOverdue"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sla/breaches", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var breaches []slaBreachResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&breaches))
	assert.Equal(t, []slaBreachResponse{{CandidateID: "cand-1", StageName: "Screening", DaysOverdue: 3}}, breaches)
}

func TestInvalidBody_IsValidationError(t *testing.T) {
	t.Parallel()

	app := newTestApp(Services{Pipeline: &stubPipeline{}})
	token := signToken(t, testUser, testCompany, "recruiter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/move", bytes.NewBufferString("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUsers_ScopedToCallerCompany(t *testing.T) {
	t.Parallel()

	const colleague = "33333333-3333-3333-3333-333333333333"
	users := &stubUsers{}
	app := newTestApp(Services{
		Users:   users,
		Members: stubMembers{byCompany: map[string][]string{testCompany: {testUser, colleague}}},
	})
	recruiter := signToken(t, testUser, testCompany, "recruiter")
	admin := signToken(t, testUser, testCompany, "admin")

	status, body := doRequest(t, app, http.MethodGet, "/api/v1/users/"+otherID, recruiter, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(apperr.KindNotFound), errorCode(t, body))

	status, body = doRequest(t, app, http.MethodGet, "/api/v1/users/"+colleague, recruiter, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, colleague, body["id"])

	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/users/"+testUser, recruiter, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = doRequest(t, app, http.MethodPatch, "/api/v1/users/"+otherID, admin, map[string]any{"status": "inactive"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(apperr.KindForbidden), errorCode(t, body))

	status, _ = doRequest(t, app, http.MethodPatch, "/api/v1/users/"+colleague, recruiter, map[string]any{"name": "Renamed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doRequest(t, app, http.MethodPatch, "/api/v1/users/"+colleague, admin, map[string]any{"status": "inactive"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inactive", body["status"])

	const hexUser = "abcdefab-cdef-abcd-efab-cdefabcdefab"
	self := signToken(t, hexUser, testCompany, "recruiter")
	status, _ = doRequest(t, app, http.MethodPatch, "/api/v1/users/"+strings.ToUpper(hexUser), self, map[string]any{"name": "Me"})
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, []string{colleague, strings.ToUpper(hexUser)}, users.updated)
}
