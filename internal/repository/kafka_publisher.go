package repository

import (
	"context"
	"fmt"
	"sort"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
)

// decisionEvent is the wire form of one ticker decision.
type decisionEvent struct {
	CycleID    string                  `json:"cycle_id"`
	Ticker     string                  `json:"ticker"`
	Decision   models.TradingDecision  `json:"decision"`
	Price      float64                 `json:"price"`
	Allowed    models.AllowedActionSet `json:"allowed_actions"`
	Overridden bool                    `json:"overridden"`
	StartedAt  int64                   `json:"started_at"`
}

// signalEvent is the wire form of one analyst signal.
type signalEvent struct {
	CycleID string `json:"cycle_id"`
	models.AnalystSignal
}

// KafkaDecisionPublisher emits decisions and analyst signals keyed by ticker,
// so consumers see every ticker's events in order.
type KafkaDecisionPublisher struct {
	producer       *pkgkafka.Producer
	decisionsTopic string
	signalsTopic   string
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, decisionsTopic, signalsTopic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, decisionsTopic: decisionsTopic, signalsTopic: signalsTopic}
}

func (p *KafkaDecisionPublisher) PublishDecisions(ctx context.Context, r *models.CycleResult) error {
	if r == nil {
		return nil
	}
	overridden := make(map[string]bool, len(r.Overrides))
	for _, t := range r.Overrides {
		overridden[t] = true
	}

	tickers := sortedTickers(r.Decisions)
	msgs := make([]pkgkafka.Message, 0, len(tickers))
	for _, t := range tickers {
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(t),
			Value: decisionEvent{
				CycleID:    r.ID,
				Ticker:     t,
				Decision:   r.Decisions[t],
				Price:      r.Prices[t],
				Allowed:    r.Allowed[t],
				Overridden: overridden[t],
				StartedAt:  r.StartedAt.UnixMilli(),
			},
			Headers: map[string]string{"cycle_id": r.ID},
		})
	}
	if err := p.producer.PublishBatch(ctx, p.decisionsTopic, msgs); err != nil {
		return fmt.Errorf("publish decisions: %w", err)
	}

	if p.signalsTopic == "" {
		return nil
	}
	var sigs []pkgkafka.Message
	for _, t := range sortedTickers(r.Signals) {
		for _, s := range r.Signals[t] {
			sigs = append(sigs, pkgkafka.Message{
				Key:     []byte(t),
				Value:   signalEvent{CycleID: r.ID, AnalystSignal: s},
				Headers: map[string]string{"cycle_id": r.ID, "agent": s.Agent},
			})
		}
	}
	if err := p.producer.PublishBatch(ctx, p.signalsTopic, sigs); err != nil {
		return fmt.Errorf("publish signals: %w", err)
	}
	return nil
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func sortedTickers[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ domrepo.DecisionPublisher = (*KafkaDecisionPublisher)(nil)
