package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stubSessionRepo covers the slice of ManualSessionRepository the source uses.
type stubSessionRepo struct {
	sessions []domain.SleepSession
	err      error
}

func (r *stubSessionRepo) Create(ctx context.Context, session *domain.SleepSession) error { return nil }
func (r *stubSessionRepo) Update(ctx context.Context, session *domain.SleepSession) error { return nil }
func (r *stubSessionRepo) Delete(ctx context.Context, id uuid.UUID) error                 { return nil }
func (r *stubSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SleepSession, error) {
	return nil, domain.ErrNotFound
}
func (r *stubSessionRepo) GetByClientRequestID(ctx context.Context, userID uuid.UUID, clientRequestID string) (*domain.SleepSession, error) {
	return nil, nil
}

func (r *stubSessionRepo) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.sessions, nil
}

func TestManualSource_Read(t *testing.T) {
	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	repo := &stubSessionRepo{sessions: []domain.SleepSession{
		{ID: uuid.New(), StartAt: start, EndAt: start.Add(8 * time.Hour), Source: domain.SourceManual},
	}}
	s := NewManualSource(repo, zap.NewNop())

	sessions := s.Read(context.Background(), uuid.New(), start.Add(-time.Hour), start.Add(24*time.Hour))

	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if s.Name() != "manual" {
		t.Errorf("unexpected source name %q", s.Name())
	}
}

func TestManualSource_ReadAbsorbsStoreErrors(t *testing.T) {
	repo := &stubSessionRepo{err: errors.New("connection refused")}
	s := NewManualSource(repo, zap.NewNop())

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if sessions := s.Read(context.Background(), uuid.New(), from, from.AddDate(0, 0, 7)); sessions != nil {
		t.Errorf("store errors should resolve to no sessions, got %+v", sessions)
	}
}
