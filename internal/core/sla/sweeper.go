package sla

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const defaultSweepTimeout = time.Minute

// BreachHook は定期評価で新たに検出した超過を受け取る副作用です。
type BreachHook interface {
	Name() string
	OnBreaches(ctx context.Context, companyID string, breaches []Evaluation) error
}

// CompanyLister は評価対象となる稼働中の会社を列挙します。
type CompanyLister interface {
	ListActiveCompanyIDs(ctx context.Context) ([]string, error)
}

// Sweeper は全社の SLA を定期的に評価し、新しい超過だけをフックへ渡します。
type Sweeper struct {
	evaluator *Evaluator
	companies CompanyLister
	hooks     []BreachHook
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	running   atomic.Bool
	newTicker func(time.Duration) ticker

	mu   sync.Mutex
	seen map[string]map[string]struct{}
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewSweeper は Sweeper を生成します。interval が 0 の場合 Run は何もせず終了を待ちます。
func NewSweeper(evaluator *Evaluator, companies CompanyLister, hooks []BreachHook, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		evaluator: evaluator,
		companies: companies,
		hooks:     hooks,
		interval:  interval,
		timeout:   defaultSweepTimeout,
		logger:    logger,
		newTicker: defaultTicker,
		seen:      make(map[string]map[string]struct{}),
	}
}

// Run は ctx がキャンセルされるまで定期評価を続けます。
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	tick := s.newTicker(s.interval)
	defer tick.Stop()
	ch := tick.C()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sla sweep failed", slog.Any("error", err))
			}
		}
	}
}

// SweepOnce は全社を 1 回評価し、新たに検出した超過の件数を返します。
// 実行中に呼ばれた場合は何もしません。
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.running.Swap(true) {
		return 0, nil
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	companyIDs, err := s.companies.ListActiveCompanyIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list companies: %w", err)
	}
	s.forgetExcept(companyIDs)

	total := 0
	for _, companyID := range companyIDs {
		breaches, err := s.evaluator.CheckBreaches(ctx, companyID)
		if err != nil {
			s.logger.WarnContext(ctx, "sla evaluation failed",
				slog.String("company_id", companyID),
				slog.Any("error", err),
			)
			continue
		}

		fresh := s.remember(companyID, breaches)
		if len(fresh) == 0 {
			continue
		}
		total += len(fresh)
		s.runHooks(ctx, companyID, fresh)
	}
	return total, nil
}

// remember は今回の超過を記録し、前回までに通知していないものだけを返します。
// 超過が解消された応募は記録から外れるため、再び超過すると再通知されます。
func (s *Sweeper) remember(companyID string, breaches []Evaluation) []Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.seen[companyID]
	current := make(map[string]struct{}, len(breaches))
	fresh := make([]Evaluation, 0)
	for _, b := range breaches {
		key := breachKey(b)
		current[key] = struct{}{}
		if _, ok := previous[key]; !ok {
			fresh = append(fresh, b)
		}
	}
	s.seen[companyID] = current
	return fresh
}

// forgetExcept は対象から外れた会社の記録を破棄します。
// 評価に失敗しただけの会社は記録を残し、次回の再通知を避けます。
func (s *Sweeper) forgetExcept(companyIDs []string) {
	active := make(map[string]struct{}, len(companyIDs))
	for _, id := range companyIDs {
		active[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.seen {
		if _, ok := active[id]; !ok {
			delete(s.seen, id)
		}
	}
}

func (s *Sweeper) runHooks(ctx context.Context, companyID string, breaches []Evaluation) {
	for _, hook := range s.hooks {
		if err := hook.OnBreaches(ctx, companyID, breaches); err != nil {
			s.logger.WarnContext(ctx, "sla breach hook failed",
				slog.String("hook", hook.Name()),
				slog.String("company_id", companyID),
				slog.Int("breaches", len(breaches)),
				slog.Any("error", err),
			)
		}
	}
}

func breachKey(b Evaluation) string {
	return b.JobCandidateID + "/" + b.StageID + "/" + strconv.FormatInt(b.EnteredAt.Unix(), 10)
}

func defaultTicker(d time.Duration) ticker {
	return tickerWrapper{time.NewTicker(d)}
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }
func (t tickerWrapper) Stop()               { t.Ticker.Stop() }
