package repository

import (
	"context"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
)

// StaticPortfolio serves a fixed snapshot, typically built from config.
type StaticPortfolio struct {
	snap models.PortfolioSnapshot
}

func NewStaticPortfolio(snap models.PortfolioSnapshot) *StaticPortfolio {
	return &StaticPortfolio{snap: snap}
}

// Snapshot returns a copy so callers cannot mutate the shared positions.
func (s *StaticPortfolio) Snapshot(context.Context) (models.PortfolioSnapshot, error) {
	out := s.snap
	if s.snap.Positions != nil {
		out.Positions = make(map[string]models.Position, len(s.snap.Positions))
		for k, v := range s.snap.Positions {
			out.Positions[k] = v
		}
	}
	return out, nil
}

var _ domrepo.PortfolioSource = (*StaticPortfolio)(nil)
