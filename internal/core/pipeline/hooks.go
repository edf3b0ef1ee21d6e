package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultHookTimeout = 5 * time.Second

// PostCommitHook はステージ変更のコミット後に実行される副作用です。
// 失敗はログに記録され、呼び出し元へは伝播しません。
type PostCommitHook interface {
	Name() string
	AfterStageChange(ctx context.Context, event StageChangedEvent) error
}

// HookFunc は関数を PostCommitHook として扱うためのアダプタです。
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, event StageChangedEvent) error
}

func (h HookFunc) Name() string {
	return h.HookName
}

func (h HookFunc) AfterStageChange(ctx context.Context, event StageChangedEvent) error {
	return h.Fn(ctx, event)
}

func (s *Service) runHooks(ctx context.Context, events []StageChangedEvent) {
	if len(s.hooks) == 0 || len(events) == 0 {
		return
	}

	// 各フックは呼び出しごとに独立した期限を持つ。
	base := context.WithoutCancel(ctx)
	for _, event := range events {
		for _, hook := range s.hooks {
			if err := invokeHook(base, s.hookTimeout, hook, event); err != nil {
				s.logger.WarnContext(ctx, "post-commit hook failed",
					slog.String("hook", hook.Name()),
					slog.String("event", string(event.Kind)),
					slog.String("company_id", event.CompanyID),
					slog.String("job_candidate_id", event.JobCandidateID),
					slog.String("to_stage_id", event.ToStageID),
					slog.Any("error", err),
				)
			}
		}
	}
}

func invokeHook(ctx context.Context, timeout time.Duration, hook PostCommitHook, event StageChangedEvent) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook.AfterStageChange(ctx, event)
}
