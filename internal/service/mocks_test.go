package service

import (
	"context"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
)

// MockManualSessionRepository is a mock implementation of ManualSessionRepository
type MockManualSessionRepository struct {
	sessions        map[uuid.UUID]*domain.SleepSession
	clientRequestID map[string]*domain.SleepSession
	err             error
}

func NewMockManualSessionRepository() *MockManualSessionRepository {
	return &MockManualSessionRepository{
		sessions:        make(map[uuid.UUID]*domain.SleepSession),
		clientRequestID: make(map[string]*domain.SleepSession),
	}
}

func (m *MockManualSessionRepository) Create(ctx context.Context, session *domain.SleepSession) error {
	if m.err != nil {
		return m.err
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	stored := *session
	m.sessions[session.ID] = &stored
	if session.ClientRequestID != nil {
		key := session.UserID.String() + ":" + *session.ClientRequestID
		m.clientRequestID[key] = &stored
	}
	return nil
}

func (m *MockManualSessionRepository) Update(ctx context.Context, session *domain.SleepSession) error {
	if m.err != nil {
		return m.err
	}
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *MockManualSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	session, ok := m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if session.ClientRequestID != nil {
		delete(m.clientRequestID, session.UserID.String()+":"+*session.ClientRequestID)
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockManualSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SleepSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MockManualSessionRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []domain.SleepSession
	for _, session := range m.sessions {
		if session.UserID != userID {
			continue
		}
		if session.StartAt.Before(from) || !session.StartAt.Before(to) {
			continue
		}
		result = append(result, *session)
	}
	return result, nil
}

func (m *MockManualSessionRepository) GetByClientRequestID(ctx context.Context, userID uuid.UUID, clientRequestID string) (*domain.SleepSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	session, ok := m.clientRequestID[userID.String()+":"+clientRequestID]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *MockManualSessionRepository) SetError(err error) {
	m.err = err
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	users map[uuid.UUID]*domain.User
	err   error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[uuid.UUID]*domain.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.err != nil {
		return m.err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (m *MockUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.users[id]
	return ok, nil
}

func (m *MockUserRepository) SetError(err error) {
	m.err = err
}

// MockSource is a fixed-result Source for consolidator tests
type MockSource struct {
	name     string
	sessions []domain.SleepSession
	delay    time.Duration
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Read(ctx context.Context, userID uuid.UUID, from, to time.Time) []domain.SleepSession {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil
		}
	}
	var result []domain.SleepSession
	for _, s := range m.sessions {
		if s.StartAt.Before(from) || !s.StartAt.Before(to) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// MockEnricher is a scriptable AdviceEnricher
type MockEnricher struct {
	response *domain.EnrichmentResponse
	err      error
	calls    int
}

func (m *MockEnricher) Enrich(ctx context.Context, req *domain.EnrichmentRequest) (*domain.EnrichmentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

// Helper functions
func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func timePtr(t time.Time) *time.Time {
	return &t
}
