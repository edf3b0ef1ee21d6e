package sla

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type staticCompanies []string

func (s staticCompanies) ListActiveCompanyIDs(context.Context) ([]string, error) {
	return s, nil
}

type captureHook struct {
	mu    sync.Mutex
	err   error
	calls [][]Evaluation
}

func (h *captureHook) Name() string { return "capture" }

func (h *captureHook) OnBreaches(_ context.Context, _ string, breaches []Evaluation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, breaches)
	return h.err
}

func (h *captureHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type stubTicker struct {
	ch chan time.Time
}

func (s *stubTicker) C() <-chan time.Time { return s.ch }
func (s *stubTicker) Stop()               {}

func TestSweeper_SweepOnce_OnlyReportsNewBreaches(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.configs[companyA] = []*Config{{StageName: "Screening", ThresholdDays: 1}}
	ada := repo.enter(companyA, "job-1", "Backend", "Ada", "Screening", 3)
	hook := &captureHook{}
	sweeper := NewSweeper(NewEvaluator(repo, 0, &stubClock{now: baseNow}, nil), staticCompanies{companyA}, []BreachHook{hook}, time.Hour, nil)

	n, err := sweeper.SweepOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected 1 new breach, got %d %v", n, err)
	}

	n, err = sweeper.SweepOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no new breaches on second sweep, got %d %v", n, err)
	}
	if hook.count() != 1 {
		t.Fatalf("expected hook to be called once, got %d", hook.count())
	}

	repo.enter(companyA, "job-1", "Backend", "Bob", "Screening", 2)
	if n, _ := sweeper.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("expected only Bob to be new, got %d", n)
	}
	if got := hook.calls[1]; len(got) != 1 || got[0].CandidateName != "Bob" {
		t.Fatalf("unexpected hook payload: %+v", got)
	}

	ada.EnteredAt = baseNow
	if n, _ := sweeper.SweepOnce(context.Background()); n != 0 {
		t.Fatalf("resolved breach must not be reported, got %d", n)
	}
	ada.EnteredAt = baseNow.Add(-72 * time.Hour)
	if n, _ := sweeper.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("breach after resolution should be reported again, got %d", n)
	}
}

func TestSweeper_LogsHookAndEvaluationFailures(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.configs[companyA] = []*Config{{StageName: "Screening", ThresholdDays: 1}}
	repo.enter(companyA, "job-1", "Backend", "Ada", "Screening", 3)
	hook := &captureHook{err: errors.New("publish failed")}
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	sweeper := NewSweeper(NewEvaluator(repo, 0, &stubClock{now: baseNow}, nil), staticCompanies{companyA, "not-a-uuid"}, []BreachHook{hook}, time.Hour, logger)
	n, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 breach, got %d", n)
	}
	out := logs.String()
	if !strings.Contains(out, "sla breach hook failed") || !strings.Contains(out, "sla evaluation failed") {
		t.Fatalf("expected failures to be logged, got %s", out)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.configs[companyA] = []*Config{{StageName: "Screening", ThresholdDays: 1}}
	repo.enter(companyA, "job-1", "Backend", "Ada", "Screening", 3)
	hook := &captureHook{}
	tick := &stubTicker{ch: make(chan time.Time, 1)}

	sweeper := NewSweeper(NewEvaluator(repo, 0, &stubClock{now: baseNow}, nil), staticCompanies{companyA}, []BreachHook{hook}, time.Minute, nil)
	sweeper.newTicker = func(time.Duration) ticker { return tick }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	tick.ch <- baseNow
	deadline := time.After(2 * time.Second)
	for hook.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestSweeper_DisabledWhenIntervalZero(t *testing.T) {
	t.Parallel()

	sweeper := NewSweeper(NewEvaluator(newFakeRepo(), 0, nil, nil), staticCompanies{}, nil, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sweeper.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

type mutableCompanies struct {
	mu  sync.Mutex
	ids []string
}

func (m *mutableCompanies) set(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = ids
}

func (m *mutableCompanies) ListActiveCompanyIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...), nil
}

func TestSweeper_ForgetsCompaniesThatLeaveTheSweep(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	repo.configs[companyA] = []*Config{{StageName: "Screening", ThresholdDays: 1}}
	repo.configs[companyB] = []*Config{{StageName: "Screening", ThresholdDays: 1}}
	repo.enter(companyA, "job-1", "Backend", "Ada", "Screening", 3)
	repo.enter(companyB, "job-2", "Designer", "Bob", "Screening", 3)
	companies := &mutableCompanies{}
	companies.set(companyA, companyB)
	sweeper := NewSweeper(NewEvaluator(repo, 0, &stubClock{now: baseNow}, nil), companies, nil, time.Hour, nil)

	if n, err := sweeper.SweepOnce(context.Background()); err != nil || n != 2 {
		t.Fatalf("expected 2 new breaches, got %d %v", n, err)
	}

	companies.set(companyA)
	if n, _ := sweeper.SweepOnce(context.Background()); n != 0 {
		t.Fatalf("expected no new breaches, got %d", n)
	}
	sweeper.mu.Lock()
	_, kept := sweeper.seen[companyB]
	tracked := len(sweeper.seen)
	sweeper.mu.Unlock()
	if kept || tracked != 1 {
		t.Fatalf("expected only %s to stay tracked, got %d entries (companyB kept=%v)", companyA, tracked, kept)
	}

	companies.set(companyA, companyB)
	if n, _ := sweeper.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("returning company should be evaluated afresh, got %d", n)
	}
}
