package sla

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

const (
	// DefaultAtRiskRatio は at_risk と判定する閾値に対する割合の既定値です。
	DefaultAtRiskRatio = 0.8
	maxThresholdDays   = 365
	maxConfigEntries   = 100
	secondsPerDay      = 86400
)

// Evaluator は滞在中のステージ履歴と閾値から SLA の状態を算出します。結果はキャッシュしません。
type Evaluator struct {
	repo        Repository
	atRiskRatio float64
	clock       usecase.Clock
	tx          usecase.TransactionManager
}

// UseCase は SLA ユースケースの公開インターフェースです。
type UseCase interface {
	GetConfig(ctx context.Context, companyID string) ([]*Config, error)
	ReplaceConfig(ctx context.Context, in ReplaceConfigInput) ([]*Config, error)
	Evaluate(ctx context.Context, companyID string) ([]Evaluation, error)
	CheckBreaches(ctx context.Context, companyID string) ([]Evaluation, error)
	RoleSummary(ctx context.Context, companyID string) (*Summary, error)
	AtRiskDays(thresholdDays int) int
}

// NewEvaluator は Evaluator を生成します。atRiskRatio が 0 以下なら既定値を使います。
func NewEvaluator(repo Repository, atRiskRatio float64, clock usecase.Clock, tx usecase.TransactionManager) *Evaluator {
	clock, tx = usecase.Defaults(clock, tx)
	if atRiskRatio <= 0 || atRiskRatio > 1 {
		atRiskRatio = DefaultAtRiskRatio
	}
	return &Evaluator{repo: repo, atRiskRatio: atRiskRatio, clock: clock, tx: tx}
}

// ConfigInput は閾値設定 1 件の入力です。
type ConfigInput struct {
	StageName     string
	ThresholdDays int
}

// ReplaceConfigInput は閾値設定の置き換え入力です。
type ReplaceConfigInput struct {
	CompanyID string
	Configs   []ConfigInput
}

// DaysInStage は入室からの経過日数を切り捨てで返します。未来の入室時刻は 0 日として扱います。
func DaysInStage(now, enteredAt time.Time) int {
	elapsed := now.Sub(enteredAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / (secondsPerDay * time.Second))
}

// Classify は滞在日数と閾値から状態を判定します。
func Classify(daysInStage, thresholdDays int, atRiskRatio float64) Status {
	switch {
	case daysInStage > thresholdDays:
		return StatusBreached
	case float64(daysInStage) >= atRiskRatio*float64(thresholdDays):
		return StatusAtRisk
	default:
		return StatusOnTrack
	}
}

// GetConfig は会社の閾値設定を返します。
func (e *Evaluator) GetConfig(ctx context.Context, companyID string) ([]*Config, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}

	var out []*Config
	if err := e.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		configs, err := e.repo.ListConfigs(txCtx, cid)
		if err != nil {
			return err
		}
		out = configs
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceConfig は会社の閾値設定をまとめて置き換えます。
func (e *Evaluator) ReplaceConfig(ctx context.Context, in ReplaceConfigInput) ([]*Config, error) {
	cid, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	if len(in.Configs) > maxConfigEntries {
		return nil, ErrTooManyConfigEntries
	}

	now := e.clock.Now()
	seen := make(map[string]struct{}, len(in.Configs))
	configs := make([]*Config, 0, len(in.Configs))
	for _, c := range in.Configs {
		name := strings.TrimSpace(c.StageName)
		if name == "" {
			return nil, ErrInvalidStageName
		}
		key := stageKey(name)
		if _, ok := seen[key]; ok {
			return nil, ErrDuplicateStageName
		}
		seen[key] = struct{}{}
		if c.ThresholdDays < 1 || c.ThresholdDays > maxThresholdDays {
			return nil, ErrInvalidThreshold
		}
		configs = append(configs, &Config{
			CompanyID:     cid,
			StageName:     name,
			ThresholdDays: c.ThresholdDays,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	var out []*Config
	if err := e.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := e.repo.ReplaceConfigs(txCtx, cid, configs)
		if err != nil {
			return err
		}
		out = result
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate は閾値が設定されたステージに滞在中の全応募を評価します。
// 閾値の無いステージに滞在中の応募は結果に含めません。
func (e *Evaluator) Evaluate(ctx context.Context, companyID string) ([]Evaluation, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}

	var (
		configs []*Config
		entries []*OpenEntry
	)
	if err := e.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		if configs, err = e.repo.ListConfigs(txCtx, cid); err != nil {
			return err
		}
		if entries, err = e.repo.ListOpenEntries(txCtx, cid); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	thresholds := make(map[string]int, len(configs))
	for _, c := range configs {
		thresholds[stageKey(c.StageName)] = c.ThresholdDays
	}

	now := e.clock.Now()
	out := make([]Evaluation, 0, len(entries))
	for _, entry := range entries {
		threshold, ok := thresholds[stageKey(entry.StageName)]
		if !ok {
			continue
		}
		days := DaysInStage(now, entry.EnteredAt)
		status := Classify(days, threshold, e.atRiskRatio)
		overdue := 0
		if status == StatusBreached {
			overdue = days - threshold
		}
		out = append(out, Evaluation{
			OpenEntry:     *entry,
			ThresholdDays: threshold,
			DaysInStage:   days,
			DaysOverdue:   overdue,
			Status:        status,
		})
	}
	return out, nil
}

// CheckBreaches は閾値を超過した応募を超過日数の多い順に返します。
func (e *Evaluator) CheckBreaches(ctx context.Context, companyID string) ([]Evaluation, error) {
	all, err := e.Evaluate(ctx, companyID)
	if err != nil {
		return nil, err
	}

	breaches := make([]Evaluation, 0)
	for _, ev := range all {
		if ev.Status == StatusBreached {
			breaches = append(breaches, ev)
		}
	}
	sort.SliceStable(breaches, func(i, j int) bool {
		if breaches[i].DaysOverdue != breaches[j].DaysOverdue {
			return breaches[i].DaysOverdue > breaches[j].DaysOverdue
		}
		return breaches[i].CandidateName < breaches[j].CandidateName
	})
	return breaches, nil
}

// RoleSummary は求人ごとに状態別の件数と最も深刻な状態を集計します。
func (e *Evaluator) RoleSummary(ctx context.Context, companyID string) (*Summary, error) {
	all, err := e.Evaluate(ctx, companyID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	summary := &Summary{Roles: []RoleSummary{}}
	for _, ev := range all {
		i, ok := index[ev.JobID]
		if !ok {
			i = len(summary.Roles)
			index[ev.JobID] = i
			summary.Roles = append(summary.Roles, RoleSummary{JobID: ev.JobID, JobTitle: ev.JobTitle, WorstStatus: StatusOnTrack})
		}
		role := &summary.Roles[i]
		role.Counts.add(ev.Status)
		if ev.Status.severity() > role.WorstStatus.severity() {
			role.WorstStatus = ev.Status
		}
	}

	sort.SliceStable(summary.Roles, func(i, j int) bool {
		a, b := summary.Roles[i], summary.Roles[j]
		if a.WorstStatus.severity() != b.WorstStatus.severity() {
			return a.WorstStatus.severity() > b.WorstStatus.severity()
		}
		return a.JobTitle < b.JobTitle
	})
	for _, role := range summary.Roles {
		summary.Totals.add(role.WorstStatus)
	}
	return summary, nil
}

// AtRiskDays は閾値に対して at_risk となる最小の滞在日数を返します。
func (e *Evaluator) AtRiskDays(thresholdDays int) int {
	return int(math.Ceil(e.atRiskRatio * float64(thresholdDays)))
}

func stageKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
