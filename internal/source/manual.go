package source

import (
	"context"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManualSource reads user-entered sessions from the manual record store.
type ManualSource struct {
	repo repository.ManualSessionRepository
	log  *zap.Logger
}

func NewManualSource(repo repository.ManualSessionRepository, log *zap.Logger) *ManualSource {
	return &ManualSource{
		repo: repo,
		log:  log.Named("source.manual"),
	}
}

func (s *ManualSource) Name() string {
	return "manual"
}

// Read returns manual sessions in [from, to). Store errors are absorbed to
// an empty result so a database hiccup degrades reads instead of failing them.
func (s *ManualSource) Read(ctx context.Context, userID uuid.UUID, from, to time.Time) []domain.SleepSession {
	sessions, err := s.repo.ListRange(ctx, userID, from, to)
	if err != nil {
		s.log.Error("manual read failed", zap.Error(err),
			zap.String("user_id", userID.String()))
		return nil
	}
	return sessions
}
