package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/company"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/interview"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/user"
)

// Services は REST API が利用するユースケースの集合です。
type Services struct {
	Companies     company.UseCase
	Users         user.UseCase
	Members       member.UseCase
	Jobs          job.UseCase
	Candidates    candidate.UseCase
	Pipeline      pipeline.UseCase
	Interviews    interview.UseCase
	Notifications notification.UseCase
	SLA           sla.UseCase
	Readiness     ReadinessChecker
}

// Options は Fiber アプリケーションの設定です。
type Options struct {
	JWTSecret      string
	JWTIssuer      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewApp はミドルウェアとルーティングを設定した Fiber アプリケーションを生成します。
func NewApp(svc Services, opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		AppName:               "ats-pipeline",
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          NewErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(accessLog(logger))
	if opts.RequestTimeout > 0 {
		app.Use(requestTimeout(opts.RequestTimeout))
	}

	Register(app, svc, NewAuthMiddleware(opts.JWTSecret, opts.JWTIssuer))
	return app
}

// Register は /api/v1 配下にすべてのルートを登録します。ヘルスチェック以外は auth を通過する必要があります。
func Register(app *fiber.App, svc Services, auth fiber.Handler) {
	v1 := app.Group("/api/v1")

	health := NewHealthHandler(svc.Readiness)
	v1.Get("/health", health.Live)
	v1.Get("/ready", health.Ready)

	api := v1.Group("", auth)
	adminOnly := RequireRole(RoleAdmin)

	companies := NewCompanyHandler(svc.Companies)
	api.Post("/companies", companies.Create)
	api.Get("/companies/:id", companies.Get)

	users := NewUserHandler(svc.Users, svc.Members)
	api.Post("/users", users.Create)
	api.Get("/users/:id", users.Get)
	api.Patch("/users/:id", users.Update)

	members := NewMemberHandler(svc.Members)
	api.Get("/members", members.List)
	api.Post("/members", adminOnly, members.Add)
	api.Patch("/members/:id", adminOnly, members.Update)
	api.Delete("/members/:id", adminOnly, members.Remove)

	jobs := NewJobHandler(svc.Jobs, svc.Pipeline)
	api.Post("/jobs", jobs.Create)
	api.Get("/jobs", jobs.List)
	api.Get("/jobs/:id", jobs.Get)
	api.Patch("/jobs/:id", jobs.Update)
	api.Post("/jobs/:id/stages", jobs.AddStage)
	api.Get("/jobs/:id/pipeline", jobs.Pipeline)

	candidates := NewCandidateHandler(svc.Candidates)
	api.Post("/candidates", candidates.Create)
	api.Get("/candidates", candidates.List)
	api.Get("/candidates/:id", candidates.Get)
	api.Patch("/candidates/:id", candidates.Update)
	api.Get("/candidates/:id/activities", candidates.Activities)

	applications := NewApplicationHandler(svc.Pipeline)
	interviews := NewInterviewHandler(svc.Interviews)
	api.Post("/applications", applications.Apply)
	api.Get("/applications", applications.List)
	api.Get("/applications/:id", applications.Get)
	api.Get("/applications/:id/history", applications.History)
	api.Post("/applications/:id/move", applications.Move)
	api.Get("/applications/:id/interviews", interviews.ListByApplication)
	api.Post("/pipeline/move", applications.BulkMove)

	api.Post("/interviews", interviews.Schedule)
	api.Get("/interviews/:id", interviews.Get)
	api.Patch("/interviews/:id/status", interviews.UpdateStatus)
	api.Post("/interviews/:id/feedback", interviews.SubmitFeedback)

	notifications := NewNotificationHandler(svc.Notifications)
	api.Get("/notifications", notifications.List)
	api.Patch("/notifications/:id/read", notifications.MarkAsRead)
	api.Post("/notifications/read-all", notifications.MarkAllAsRead)

	slaHandler := NewSLAHandler(svc.SLA)
	api.Get("/sla/config", slaHandler.GetConfig)
	api.Put("/sla/config", adminOnly, slaHandler.ReplaceConfig)
	api.Get("/sla/breaches", slaHandler.Breaches)
	api.Get("/sla/alerts", slaHandler.Alerts)
	api.Get("/sla/status", slaHandler.Status)
	api.Get("/sla/summary", slaHandler.Summary)
}

// accessLog はリクエストごとに 1 行のアクセスログを出力します。
func accessLog(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		logger.InfoContext(c.UserContext(), "http request",
			slog.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("latency", time.Since(start)),
		)
		return nil
	}
}

// requestTimeout はハンドラーへ渡す context に期限を設定します。
func requestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
