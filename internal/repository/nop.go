package repository

import (
	"context"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
)

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishDecisions(context.Context, *models.CycleResult) error { return nil }
func (NopPublisher) Close() error { return nil }

// NopArchive is used when ClickHouse is disabled.
type NopArchive struct{}

func (NopArchive) Init(context.Context) error { return nil }
func (NopArchive) SaveDecisions(context.Context, *models.CycleResult) error { return nil }
func (NopArchive) Close() error { return nil }

var (
	_ domrepo.DecisionPublisher = NopPublisher{}
	_ domrepo.DecisionArchive   = NopArchive{}
)
