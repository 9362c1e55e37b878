package repository

import (
	"context"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ManualSessionRepository is the persistence contract for user-entered
// sleep sessions. Platform and derived sessions are never stored here.
type ManualSessionRepository interface {
	Create(ctx context.Context, session *domain.SleepSession) error
	Update(ctx context.Context, session *domain.SleepSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SleepSession, error)
	// ListRange returns manual sessions with start_at in [from, to), ordered
	// by start_at descending.
	ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error)
	GetByClientRequestID(ctx context.Context, userID uuid.UUID, clientRequestID string) (*domain.SleepSession, error)
}

type manualSessionRepository struct {
	db *gorm.DB
}

func NewManualSessionRepository(db *gorm.DB) ManualSessionRepository {
	return &manualSessionRepository{db: db}
}

func (r *manualSessionRepository) Create(ctx context.Context, session *domain.SleepSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *manualSessionRepository) Update(ctx context.Context, session *domain.SleepSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *manualSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.SleepSession{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *manualSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SleepSession, error) {
	var session domain.SleepSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *manualSessionRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error) {
	var sessions []domain.SleepSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("start_at >= ? AND start_at < ?", from, to).
		Order("start_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *manualSessionRepository) GetByClientRequestID(ctx context.Context, userID uuid.UUID, clientRequestID string) (*domain.SleepSession, error) {
	var session domain.SleepSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND client_request_id = ?", userID, clientRequestID).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // Not found is not an error for idempotency check
		}
		return nil, err
	}
	return &session, nil
}
