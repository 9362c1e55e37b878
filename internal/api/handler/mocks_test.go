package handler

import (
	"context"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/service"
	"github.com/google/uuid"
)

// MockManualSessionService is a mock implementation of ManualSessionService
type MockManualSessionService struct {
	addFunc     func(ctx context.Context, userID uuid.UUID, req *domain.CreateSessionRequest) (*service.AddResult, error)
	confirmFunc func(ctx context.Context, userID, decisionID uuid.UUID) (*domain.SleepSession, error)
	cancelFunc  func(ctx context.Context, userID, decisionID uuid.UUID) error
	getFunc     func(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SleepSession, error)
	updateFunc  func(ctx context.Context, userID, sessionID uuid.UUID, req *domain.UpdateSessionRequest) (*domain.SleepSession, error)
	deleteFunc  func(ctx context.Context, userID, sessionID uuid.UUID) error
}

func (m *MockManualSessionService) Add(ctx context.Context, userID uuid.UUID, req *domain.CreateSessionRequest) (*service.AddResult, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, userID, req)
	}
	return &service.AddResult{Session: &domain.SleepSession{
		ID:            uuid.New(),
		UserID:        userID,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		Source:        domain.SourceManual,
		WakeCount:     req.WakeCount,
		LocalTimezone: "UTC",
		CreatedAt:     time.Now(),
	}}, nil
}

func (m *MockManualSessionService) ConfirmOverwrite(ctx context.Context, userID, decisionID uuid.UUID) (*domain.SleepSession, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, userID, decisionID)
	}
	return nil, domain.ErrDecisionNotFound
}

func (m *MockManualSessionService) CancelOverwrite(ctx context.Context, userID, decisionID uuid.UUID) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, userID, decisionID)
	}
	return domain.ErrDecisionNotFound
}

func (m *MockManualSessionService) GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*domain.SleepSession, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, sessionID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockManualSessionService) Update(ctx context.Context, userID, sessionID uuid.UUID, req *domain.UpdateSessionRequest) (*domain.SleepSession, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, userID, sessionID, req)
	}
	return nil, domain.ErrNotFound
}

func (m *MockManualSessionService) Delete(ctx context.Context, userID, sessionID uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, sessionID)
	}
	return domain.ErrNotFound
}

// MockConsolidator is a mock implementation of Consolidator
type MockConsolidator struct {
	sessionsFunc    func(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error)
	listFunc        func(ctx context.Context, userID uuid.UUID, filter domain.SessionFilter) (*domain.SessionListResponse, error)
	consolidateFunc func(ctx context.Context, userID uuid.UUID, from, to time.Time, fullDay bool) ([]domain.ConsolidatedNight, error)
}

func (m *MockConsolidator) Sessions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error) {
	if m.sessionsFunc != nil {
		return m.sessionsFunc(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *MockConsolidator) List(ctx context.Context, userID uuid.UUID, filter domain.SessionFilter) (*domain.SessionListResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, filter)
	}
	return &domain.SessionListResponse{
		Data:       []domain.SessionResponse{},
		Pagination: domain.PaginationResponse{HasMore: false},
	}, nil
}

func (m *MockConsolidator) ConsolidateRange(ctx context.Context, userID uuid.UUID, from, to time.Time, fullDay bool) ([]domain.ConsolidatedNight, error) {
	if m.consolidateFunc != nil {
		return m.consolidateFunc(ctx, userID, from, to, fullDay)
	}
	return []domain.ConsolidatedNight{}, nil
}

// MockOrchestrator is a mock implementation of AnalysisOrchestrator
type MockOrchestrator struct {
	analyzeSessionFunc func(ctx context.Context, session *domain.SleepSession) *domain.SleepAdvice
	analyzeWeekFunc    func(ctx context.Context, userID uuid.UUID, end time.Time) (*domain.SleepAdvice, *domain.WeeklyTrend, error)
	state              service.AnalysisState
}

func (m *MockOrchestrator) AnalyzeSession(ctx context.Context, session *domain.SleepSession) *domain.SleepAdvice {
	if m.analyzeSessionFunc != nil {
		return m.analyzeSessionFunc(ctx, session)
	}
	return &domain.SleepAdvice{Degraded: true}
}

func (m *MockOrchestrator) AnalyzeWeek(ctx context.Context, userID uuid.UUID, end time.Time) (*domain.SleepAdvice, *domain.WeeklyTrend, error) {
	if m.analyzeWeekFunc != nil {
		return m.analyzeWeekFunc(ctx, userID, end)
	}
	return &domain.SleepAdvice{}, &domain.WeeklyTrend{}, nil
}

func (m *MockOrchestrator) State() service.AnalysisState {
	if m.state == "" {
		return service.StateIdle
	}
	return m.state
}

// MockNapDetector is a mock implementation of NapDetector
type MockNapDetector struct {
	detectFunc func(sessions []domain.SleepSession, user *domain.User) []domain.Nap
}

func (m *MockNapDetector) Detect(sessions []domain.SleepSession, user *domain.User) []domain.Nap {
	if m.detectFunc != nil {
		return m.detectFunc(sessions, user)
	}
	return nil
}
