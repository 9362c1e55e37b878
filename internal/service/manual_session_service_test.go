package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
)

func newTestManualService(t *testing.T) (ManualSessionService, *MockManualSessionRepository, uuid.UUID) {
	t.Helper()
	repo := NewMockManualSessionRepository()
	userRepo := NewMockUserRepository()
	user := &domain.User{ID: uuid.New(), Timezone: "Europe/Prague", UsualBedtime: "22:00", UsualWakeTime: "07:00"}
	userRepo.Create(context.Background(), user)
	return NewManualSessionService(repo, userRepo), repo, user.ID
}

func TestManualSessionService_AddRoundTrip(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	result, err := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt:   start,
		EndAt:     start.Add(8 * time.Hour),
		WakeCount: 1,
		Notes:     "slept well",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Session == nil || result.Decision != nil {
		t.Fatalf("expected a created session, got %+v", result)
	}
	if result.Session.Source != domain.SourceManual {
		t.Errorf("expected MANUAL source, got %s", result.Session.Source)
	}
	if result.Session.LocalTimezone != "Europe/Prague" {
		t.Errorf("expected user timezone fallback, got %s", result.Session.LocalTimezone)
	}
	if result.Session.Efficiency != 95 {
		t.Errorf("expected derived efficiency 95, got %.2f", result.Session.Efficiency)
	}

	fetched, err := svc.GetByID(context.Background(), userID, result.Session.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fetched.StartAt.Equal(start) || fetched.WakeCount != 1 || fetched.Notes != "slept well" {
		t.Errorf("round trip mismatch: %+v", fetched)
	}
}

func TestManualSessionService_AddRejectsInvertedRange(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	_, err := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start,
		EndAt:   start.Add(-time.Hour),
	})
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}

	_, err = svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start,
		EndAt:   start,
	})
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange for zero duration, got %v", err)
	}
}

func TestManualSessionService_AddUnknownUser(t *testing.T) {
	svc, _, _ := newTestManualService(t)

	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	_, err := svc.Add(context.Background(), uuid.New(), &domain.CreateSessionRequest{
		StartAt: start,
		EndAt:   start.Add(8 * time.Hour),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManualSessionService_AddIdempotentRetry(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	req := &domain.CreateSessionRequest{
		StartAt:         start,
		EndAt:           start.Add(8 * time.Hour),
		ClientRequestID: strPtr("retry-key-1"),
	}

	first, err := svc.Add(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Add(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if !second.Existing {
		t.Errorf("retry should report the existing session")
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("retry returned a different session: %s vs %s", second.Session.ID, first.Session.ID)
	}
}

func TestManualSessionService_SameDayRaisesDecision(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	first, err := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start,
		EndAt:   start.Add(8 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second manual entry on the same local day.
	result, err := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt:   start.Add(time.Hour),
		EndAt:     start.Add(9 * time.Hour),
		WakeCount: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Decision == nil || result.Session != nil {
		t.Fatalf("expected a pending decision, got %+v", result)
	}
	if result.Decision.ExistingSessionID != first.Session.ID {
		t.Errorf("decision references wrong session: %s", result.Decision.ExistingSessionID)
	}
	if result.Decision.ExpiresAt.Before(result.Decision.CreatedAt) {
		t.Errorf("decision expires before creation: %+v", result.Decision)
	}
}

func TestManualSessionService_CancelKeepsOriginal(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	first, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start, EndAt: start.Add(8 * time.Hour),
	})
	result, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start.Add(time.Hour), EndAt: start.Add(9 * time.Hour),
	})

	if err := svc.CancelOverwrite(context.Background(), userID, result.Decision.DecisionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Original survives; the decision is gone.
	if _, err := svc.GetByID(context.Background(), userID, first.Session.ID); err != nil {
		t.Errorf("original session should survive a cancel: %v", err)
	}
	err := svc.CancelOverwrite(context.Background(), userID, result.Decision.DecisionID)
	if !errors.Is(err, domain.ErrDecisionNotFound) {
		t.Errorf("expected ErrDecisionNotFound on second cancel, got %v", err)
	}
}

func TestManualSessionService_ConfirmReplacesOriginal(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	first, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start, EndAt: start.Add(8 * time.Hour),
	})
	result, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start.Add(time.Hour), EndAt: start.Add(9 * time.Hour), WakeCount: 2,
	})

	replacement, err := svc.ConfirmOverwrite(context.Background(), userID, result.Decision.DecisionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replacement.WakeCount != 2 || !replacement.StartAt.Equal(start.Add(time.Hour)) {
		t.Errorf("replacement carries wrong data: %+v", replacement)
	}

	if _, err := svc.GetByID(context.Background(), userID, first.Session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("original should be deleted after confirm, got %v", err)
	}
}

func TestManualSessionService_DecisionScopedToUser(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start, EndAt: start.Add(8 * time.Hour),
	})
	result, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start.Add(time.Hour), EndAt: start.Add(9 * time.Hour),
	})

	_, err := svc.ConfirmOverwrite(context.Background(), uuid.New(), result.Decision.DecisionID)
	if !errors.Is(err, domain.ErrDecisionNotFound) {
		t.Fatalf("expected ErrDecisionNotFound for other user, got %v", err)
	}
}

func TestManualSessionService_UpdateValidatesRange(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	created, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start, EndAt: start.Add(8 * time.Hour),
	})

	_, err := svc.Update(context.Background(), userID, created.Session.ID, &domain.UpdateSessionRequest{
		EndAt: timePtr(start.Add(-time.Hour)),
	})
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}

	updated, err := svc.Update(context.Background(), userID, created.Session.ID, &domain.UpdateSessionRequest{
		WakeCount: intPtr(3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.WakeCount != 3 {
		t.Errorf("wake count not updated: %d", updated.WakeCount)
	}
	if updated.Efficiency != 85 {
		t.Errorf("expected re-derived efficiency 85, got %.2f", updated.Efficiency)
	}
}

func TestManualSessionService_DeleteScopedToUser(t *testing.T) {
	svc, _, userID := newTestManualService(t)

	start := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	created, _ := svc.Add(context.Background(), userID, &domain.CreateSessionRequest{
		StartAt: start, EndAt: start.Add(8 * time.Hour),
	})

	if err := svc.Delete(context.Background(), uuid.New(), created.Session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if err := svc.Delete(context.Background(), userID, created.Session.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), userID, created.Session.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
