package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
)

// CycleRunner runs one decision cycle.
type CycleRunner interface {
	Run(ctx context.Context, req models.CycleRequest) (*models.CycleResult, error)
}

// CycleRequestHandler runs a cycle for every request consumed from Kafka.
type CycleRequestHandler struct {
	topic   string
	cycle   CycleRunner
	metrics domrepo.Metrics
}

func NewCycleRequestHandler(topic string, cycle CycleRunner, metrics domrepo.Metrics) *CycleRequestHandler {
	return &CycleRequestHandler{topic: topic, cycle: cycle, metrics: metrics}
}

func (h *CycleRequestHandler) Topic() string { return h.topic }

// Handle decodes a CycleRequest and runs it. Undecodable payloads and invalid
// requests are permanent failures so the consumer moves them to the DLQ.
func (h *CycleRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.CycleRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode cycle request: %w", err))
	}

	start := time.Now()
	_, err := h.cycle.Run(ctx, req)
	h.metrics.RecordLatency("consumer_cycle", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_cycle")
		if errors.Is(err, ErrInvalidRequest) {
			return pkgkafka.Permanent(err)
		}
		return err
	}
	return nil
}

var (
	_ pkgkafka.MessageHandler = (*CycleRequestHandler)(nil)
	_ CycleRunner             = (*TradingCycle)(nil)
)
