package service

import (
	"context"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/repository"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

const (
	// DecisionTTL is how long a pending overwrite decision stays resolvable.
	DecisionTTL = 15 * time.Minute

	decisionCleanupInterval = 30 * time.Minute
)

// AddResult is the outcome of adding a manual session: either the created
// session, or a pending overwrite decision when the day already has a
// manual entry.
type AddResult struct {
	Session  *domain.SleepSession
	Decision *domain.PendingOverwriteDecision
	// Existing is true when an idempotent retry returned the prior session.
	Existing bool
}

// ManualSessionService owns the write path for user-entered sessions.
// Writes are synchronous-to-completion; this is the only component that
// mutates persisted records.
type ManualSessionService interface {
	Add(ctx context.Context, userID uuid.UUID, req *domain.CreateSessionRequest) (*AddResult, error)
	ConfirmOverwrite(ctx context.Context, userID, decisionID uuid.UUID) (*domain.SleepSession, error)
	CancelOverwrite(ctx context.Context, userID, decisionID uuid.UUID) error
	GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SleepSession, error)
	Update(ctx context.Context, userID, sessionID uuid.UUID, req *domain.UpdateSessionRequest) (*domain.SleepSession, error)
	Delete(ctx context.Context, userID, sessionID uuid.UUID) error
}

type manualSessionService struct {
	repo     repository.ManualSessionRepository
	userRepo repository.UserRepository
	pending  *cache.Cache
}

func NewManualSessionService(repo repository.ManualSessionRepository, userRepo repository.UserRepository) ManualSessionService {
	return &manualSessionService{
		repo:     repo,
		userRepo: userRepo,
		pending:  cache.New(DecisionTTL, decisionCleanupInterval),
	}
}

func (s *manualSessionService) Add(ctx context.Context, userID uuid.UUID, req *domain.CreateSessionRequest) (*AddResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Inverted ranges are rejected at the write boundary, before any
	// persistence or conflict checks.
	if !req.EndAt.After(req.StartAt) {
		return nil, domain.ErrInvalidTimeRange
	}

	// Idempotent retry: same client_request_id returns the existing record.
	if req.ClientRequestID != nil && *req.ClientRequestID != "" {
		existing, err := s.repo.GetByClientRequestID(ctx, userID, *req.ClientRequestID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			ApplyStageMetrics(existing)
			return &AddResult{Session: existing, Existing: true}, nil
		}
	}

	localTZ := user.Timezone
	if req.LocalTimezone != nil && *req.LocalTimezone != "" {
		localTZ = *req.LocalTimezone
	}
	if localTZ == "" {
		localTZ = "UTC"
	}

	// Manual-vs-manual conflict on the same local day raises a pending
	// overwrite decision instead of silently merging. Platform sessions
	// never trigger this.
	existing, err := s.sameDayManualSession(ctx, userID, req.StartAt, localTZ)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		decision := &domain.PendingOverwriteDecision{
			DecisionID:        uuid.New(),
			UserID:            userID,
			ExistingSessionID: existing.ID,
			Proposed:          *req,
			CreatedAt:         time.Now().UTC(),
			ExpiresAt:         time.Now().UTC().Add(DecisionTTL),
		}
		s.pending.Set(decision.DecisionID.String(), decision, cache.DefaultExpiration)
		return &AddResult{Decision: decision}, nil
	}

	session, err := s.create(ctx, userID, req, localTZ)
	if err != nil {
		return nil, err
	}
	return &AddResult{Session: session}, nil
}

func (s *manualSessionService) ConfirmOverwrite(ctx context.Context, userID, decisionID uuid.UUID) (*domain.SleepSession, error) {
	decision, err := s.takeDecision(userID, decisionID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, decision.ExistingSessionID); err != nil && err != domain.ErrNotFound {
		return nil, err
	}

	localTZ := user.Timezone
	if decision.Proposed.LocalTimezone != nil && *decision.Proposed.LocalTimezone != "" {
		localTZ = *decision.Proposed.LocalTimezone
	}

	return s.create(ctx, userID, &decision.Proposed, localTZ)
}

func (s *manualSessionService) CancelOverwrite(ctx context.Context, userID, decisionID uuid.UUID) error {
	_, err := s.takeDecision(userID, decisionID)
	return err
}

func (s *manualSessionService) GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SleepSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrNotFound
	}
	ApplyStageMetrics(session)
	return session, nil
}

func (s *manualSessionService) Update(ctx context.Context, userID, sessionID uuid.UUID, req *domain.UpdateSessionRequest) (*domain.SleepSession, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrNotFound
	}

	if req.StartAt != nil {
		session.StartAt = req.StartAt.UTC()
	}
	if req.EndAt != nil {
		session.EndAt = req.EndAt.UTC()
	}
	if req.WakeCount != nil {
		session.WakeCount = *req.WakeCount
	}
	if req.Notes != nil {
		session.Notes = *req.Notes
	}
	if req.LocalTimezone != nil && *req.LocalTimezone != "" {
		session.LocalTimezone = *req.LocalTimezone
	}

	if !session.EndAt.After(session.StartAt) {
		return nil, domain.ErrInvalidTimeRange
	}

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	ApplyStageMetrics(session)
	return session, nil
}

func (s *manualSessionService) Delete(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, sessionID)
}

func (s *manualSessionService) create(ctx context.Context, userID uuid.UUID, req *domain.CreateSessionRequest, localTZ string) (*domain.SleepSession, error) {
	session := &domain.SleepSession{
		UserID:          userID,
		StartAt:         req.StartAt.UTC(),
		EndAt:           req.EndAt.UTC(),
		Source:          domain.SourceManual,
		WakeCount:       req.WakeCount,
		Notes:           req.Notes,
		LocalTimezone:   localTZ,
		ClientRequestID: req.ClientRequestID,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	ApplyStageMetrics(session)
	return session, nil
}

// sameDayManualSession finds an existing manual session on the same local
// calendar day as startAt, if any.
func (s *manualSessionService) sameDayManualSession(ctx context.Context, userID uuid.UUID, startAt time.Time, tz string) (*domain.SleepSession, error) {
	loc := time.UTC
	if l, err := time.LoadLocation(tz); err == nil {
		loc = l
	}

	local := startAt.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	sessions, err := s.repo.ListRange(ctx, userID, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// takeDecision removes and returns a pending decision owned by the user.
func (s *manualSessionService) takeDecision(userID, decisionID uuid.UUID) (*domain.PendingOverwriteDecision, error) {
	raw, found := s.pending.Get(decisionID.String())
	if !found {
		return nil, domain.ErrDecisionNotFound
	}
	decision := raw.(*domain.PendingOverwriteDecision)
	if decision.UserID != userID {
		return nil, domain.ErrDecisionNotFound
	}
	s.pending.Delete(decisionID.String())
	return decision, nil
}
