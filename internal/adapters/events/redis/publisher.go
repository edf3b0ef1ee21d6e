package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
)

const hookName = "redis-publisher"

// publisher は Publish のみを必要とする Redis クライアントの部分集合です。
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// Publisher はステージ変更と SLA 超過を Redis の Pub/Sub チャンネルへ配信します。
type Publisher struct {
	client  publisher
	channel string
	now     func() time.Time
}

// NewPublisher は Publisher を生成します。
func NewPublisher(client publisher, channel string) *Publisher {
	return &Publisher{client: client, channel: channel, now: time.Now}
}

// NewClient は設定値から Redis クライアントを生成します。
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}

// Message はチャンネルへ配信されるイベントの共通形式です。
type Message struct {
	Type       string    `json:"type"`
	CompanyID  string    `json:"companyId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

type stageChangeData struct {
	ApplicationID string `json:"applicationId"`
	JobID         string `json:"jobId"`
	CandidateID   string `json:"candidateId"`
	FromStageID   string `json:"fromStageId,omitempty"`
	FromStageName string `json:"fromStageName,omitempty"`
	ToStageID     string `json:"toStageId"`
	ToStageName   string `json:"toStageName"`
	MovedBy       string `json:"movedBy,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

type breachData struct {
	ApplicationID string `json:"applicationId"`
	CandidateID   string `json:"candidateId"`
	JobID         string `json:"jobId"`
	StageName     string `json:"stageName"`
	DaysInStage   int    `json:"daysInStage"`
	ThresholdDays int    `json:"thresholdDays"`
	DaysOverdue   int    `json:"daysOverdue"`
}

// Name はフック名を返します。
func (p *Publisher) Name() string {
	return hookName
}

// AfterStageChange はステージ変更イベントを配信します。
func (p *Publisher) AfterStageChange(ctx context.Context, event pipeline.StageChangedEvent) error {
	return p.publish(ctx, Message{
		Type:       string(event.Kind),
		CompanyID:  event.CompanyID,
		OccurredAt: event.OccurredAt,
		Data: stageChangeData{
			ApplicationID: event.JobCandidateID,
			JobID:         event.JobID,
			CandidateID:   event.CandidateID,
			FromStageID:   event.FromStageID,
			FromStageName: event.FromStageName,
			ToStageID:     event.ToStageID,
			ToStageName:   event.ToStageName,
			MovedBy:       event.ActorID,
			Comment:       event.Comment,
		},
	})
}

// OnBreaches は新たに検出された SLA 超過を 1 件ずつ配信します。
func (p *Publisher) OnBreaches(ctx context.Context, companyID string, breaches []sla.Evaluation) error {
	now := p.now().UTC()
	for _, b := range breaches {
		err := p.publish(ctx, Message{
			Type:       "sla_breach",
			CompanyID:  companyID,
			OccurredAt: now,
			Data: breachData{
				ApplicationID: b.JobCandidateID,
				CandidateID:   b.CandidateID,
				JobID:         b.JobID,
				StageName:     b.StageName,
				DaysInStage:   b.DaysInStage,
				ThresholdDays: b.ThresholdDays,
				DaysOverdue:   b.DaysOverdue,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis publisher: encode %s: %w", msg.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publisher: publish %s: %w", msg.Type, err)
	}
	return nil
}
