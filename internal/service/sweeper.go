package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// SweepResult counts rows removed by one sweep.
type SweepResult struct {
	RefreshTokens int64 `json:"refresh_tokens"`
	Revocations   int64 `json:"revocations"`
}

// Sweeper purges expired refresh tokens and blacklist entries.
type Sweeper struct {
	refresh   model.RefreshTokenStore
	blacklist model.RevocationStore
	logger    *logger.Logger
}

func NewSweeper(refresh model.RefreshTokenStore, blacklist model.RevocationStore, logger *logger.Logger) *Sweeper {
	return &Sweeper{
		refresh:   refresh,
		blacklist: blacklist,
		logger:    logger,
	}
}

// SweepOnce runs both sweeps concurrently.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.refresh.SweepExpired(gctx)
		if err != nil {
			return fmt.Errorf("failed to sweep refresh tokens: %w", err)
		}
		res.RefreshTokens = n
		return nil
	})
	g.Go(func() error {
		n, err := s.blacklist.SweepExpired(gctx)
		if err != nil {
			return fmt.Errorf("failed to sweep blacklist: %w", err)
		}
		res.Revocations = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return SweepResult{}, err
	}

	s.logger.Info("Sweeper: expired rows removed",
		"refresh_tokens", res.RefreshTokens,
		"revocations", res.Revocations)

	return res, nil
}

// Run sweeps every interval until ctx is done. A non-positive interval
// returns immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("Sweeper: disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("Sweeper: sweep failed", "error", err)
			}
		}
	}
}
