package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionSource identifies the origin of a sleep record.
// @Description Origin of a sleep session: PLATFORM (health platform), MANUAL (user-entered), DERIVED (computed).
type SessionSource string

const (
	// SourcePlatform marks sessions supplied by the external health platform.
	SourcePlatform SessionSource = "PLATFORM"
	// SourceManual marks sessions entered directly by the user.
	SourceManual SessionSource = "MANUAL"
	// SourceDerived marks sessions produced by consolidation or averaging.
	// Derived sessions are never persisted.
	SourceDerived SessionSource = "DERIVED"
)

// StageType classifies a sleep stage interval.
type StageType string

const (
	StageAwake    StageType = "AWAKE"
	StageLight    StageType = "LIGHT"
	StageDeep     StageType = "DEEP"
	StageRem      StageType = "REM"
	StageSleeping StageType = "SLEEPING"
	StageOutOfBed StageType = "OUT_OF_BED"
	StageUnknown  StageType = "UNKNOWN"
)

// SleepStage is a single staged interval within a session.
type SleepStage struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Type    StageType `json:"type"`
}

// Duration returns the length of the stage interval.
func (s SleepStage) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

// StageList is a JSON-serialized slice of sleep stages, stored as jsonb.
type StageList []SleepStage

func (l StageList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StageList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StageList")
	}
}

// HeartRateSample is an auxiliary signal attached to platform sessions.
// Samples are fetched best-effort and never persisted.
type HeartRateSample struct {
	At  time.Time `json:"at"`
	BPM int       `json:"bpm"`
}

// SleepSession is a single recorded sleep interval.
type SleepSession struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID     `gorm:"type:uuid;not null;index:idx_sleep_sessions_user_start" json:"user_id"`
	StartAt         time.Time     `gorm:"not null;index:idx_sleep_sessions_user_start,sort:desc" json:"start_at"`
	EndAt           time.Time     `gorm:"not null" json:"end_at"`
	Source          SessionSource `gorm:"type:varchar(10);not null;default:'MANUAL'" json:"source"`
	Stages          StageList     `gorm:"type:jsonb" json:"stages,omitempty"`
	WakeCount       int           `gorm:"type:smallint;not null;default:0" json:"wake_during_night_count"`
	LightPct        float64       `gorm:"not null;default:0" json:"light_sleep_percentage"`
	DeepPct         float64       `gorm:"not null;default:0" json:"deep_sleep_percentage"`
	RemPct          float64       `gorm:"not null;default:0" json:"rem_sleep_percentage"`
	Notes           string        `gorm:"type:text" json:"notes,omitempty"`
	LocalTimezone   string        `gorm:"type:varchar(64);not null;default:'UTC'" json:"local_timezone"`
	ClientRequestID *string       `gorm:"type:varchar(255);uniqueIndex:idx_user_client_request,where:client_request_id IS NOT NULL" json:"client_request_id,omitempty"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`

	// Efficiency is derived from stage composition and wake count on every
	// read; it is never treated as persisted ground truth.
	Efficiency float64 `gorm:"-" json:"efficiency"`

	// HeartRateSamples are auxiliary platform data, populated best-effort.
	HeartRateSamples []HeartRateSample `gorm:"-" json:"heart_rate_samples,omitempty"`
}

func (SleepSession) TableName() string {
	return "sleep_sessions"
}

// Duration returns the recorded interval length.
func (s *SleepSession) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

// Location resolves the session's local timezone, falling back to UTC.
func (s *SleepSession) Location() *time.Location {
	if s.LocalTimezone != "" {
		if loc, err := time.LoadLocation(s.LocalTimezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// LocalDay returns the calendar day (YYYY-MM-DD) the session starts on,
// in the session's local timezone. Used for same-day grouping.
func (s *SleepSession) LocalDay() string {
	return s.StartAt.In(s.Location()).Format("2006-01-02")
}

// CreateSessionRequest is the request body for creating a manual session.
// @Description Request payload for recording a manual sleep session.
type CreateSessionRequest struct {
	// Sleep start time in RFC3339 format (UTC recommended)
	StartAt time.Time `json:"start_at" validate:"required" example:"2024-01-15T23:00:00Z"`
	// Sleep end time in RFC3339 format (must be after start_at)
	EndAt time.Time `json:"end_at" validate:"required,gtfield=StartAt" example:"2024-01-16T07:00:00Z"`
	// Number of times the user woke during the night
	WakeCount int `json:"wake_during_night_count" validate:"min=0,max=100" example:"1"`
	// Optional free-text notes (max 2000 chars)
	Notes string `json:"notes,omitempty" validate:"max=2000" example:"restless evening"`
	// Optional client-generated ID for idempotent requests (max 255 chars)
	ClientRequestID *string `json:"client_request_id,omitempty" validate:"omitempty,max=255" example:"client-uuid-12345"`
	// Optional IANA timezone for local time display (defaults to user's timezone)
	LocalTimezone *string `json:"local_timezone,omitempty" validate:"omitempty,timezone" example:"Europe/Prague"`
}

// UpdateSessionRequest is the request body for updating a manual session.
// All fields are optional; omitted fields are left unchanged.
type UpdateSessionRequest struct {
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	WakeCount     *int       `json:"wake_during_night_count,omitempty" validate:"omitempty,min=0,max=100"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	LocalTimezone *string    `json:"local_timezone,omitempty" validate:"omitempty,timezone"`
}

// SessionResponse is the response body for session endpoints.
// @Description Sleep session record with derived efficiency and local times.
type SessionResponse struct {
	ID               uuid.UUID         `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID           uuid.UUID         `json:"user_id" example:"660e8400-e29b-41d4-a716-446655440001"`
	StartAt          time.Time         `json:"start_at" example:"2024-01-15T23:00:00Z"`
	EndAt            time.Time         `json:"end_at" example:"2024-01-16T07:00:00Z"`
	Source           SessionSource     `json:"source" example:"MANUAL"`
	Stages           StageList         `json:"stages,omitempty"`
	WakeCount        int               `json:"wake_during_night_count" example:"1"`
	LightPct         float64           `json:"light_sleep_percentage" example:"50"`
	DeepPct          float64           `json:"deep_sleep_percentage" example:"25"`
	RemPct           float64           `json:"rem_sleep_percentage" example:"25"`
	Efficiency       float64           `json:"efficiency" example:"95"`
	Notes            string            `json:"notes,omitempty"`
	HeartRateSamples []HeartRateSample `json:"heart_rate_samples,omitempty"`
	LocalTimezone    string            `json:"local_timezone" example:"Europe/Prague"`
	LocalStartAt     time.Time         `json:"local_start_at" example:"2024-01-16T00:00:00+01:00"`
	LocalEndAt       time.Time         `json:"local_end_at" example:"2024-01-16T08:00:00+01:00"`
	CreatedAt        time.Time         `json:"created_at,omitempty"`
}

func (s *SleepSession) ToResponse() SessionResponse {
	loc := s.Location()
	return SessionResponse{
		ID:               s.ID,
		UserID:           s.UserID,
		StartAt:          s.StartAt,
		EndAt:            s.EndAt,
		Source:           s.Source,
		Stages:           s.Stages,
		WakeCount:        s.WakeCount,
		LightPct:         s.LightPct,
		DeepPct:          s.DeepPct,
		RemPct:           s.RemPct,
		Efficiency:       s.Efficiency,
		Notes:            s.Notes,
		HeartRateSamples: s.HeartRateSamples,
		LocalTimezone:    s.LocalTimezone,
		LocalStartAt:     s.StartAt.In(loc),
		LocalEndAt:       s.EndAt.In(loc),
		CreatedAt:        s.CreatedAt,
	}
}

// SessionListResponse is the response body for listing sessions.
// @Description Paginated list of merged sleep sessions, newest first.
type SessionListResponse struct {
	Data       []SessionResponse  `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// PaginationResponse contains pagination metadata.
// @Description Cursor-based pagination info.
type PaginationResponse struct {
	// Cursor for fetching the next page (empty if no more pages)
	NextCursor string `json:"next_cursor,omitempty"`
	// True if more results are available
	HasMore bool `json:"has_more" example:"true"`
}

// SessionFilter contains filter parameters for listing sessions.
type SessionFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Cursor string
}

// ConsolidatedNight is a derived session representing one calendar day.
// It is computed on demand and never stored.
// @Description One logical night merged from same-day fragments.
type ConsolidatedNight struct {
	// Local calendar day in YYYY-MM-DD format
	Day string `json:"day" example:"2024-01-15"`
	// Merged session with Source=DERIVED
	Session SleepSession `json:"session"`
	// Union of the merged intervals in minutes; overlaps are not
	// double-counted, so this can be less than EndAt-StartAt of the envelope
	TotalDurationMinutes float64 `json:"total_duration_minutes" example:"480"`
	// Number of underlying sessions merged into this night
	MergedCount int `json:"merged_count" example:"2"`
	// True when non-adjacent same-day fragments were summed as well
	FullyConsolidated bool `json:"fully_consolidated"`
}

// PendingOverwriteDecision is returned when a manual session is added on a
// day that already has a manual session. The caller resolves it by
// confirming (replace the existing session) or cancelling.
// @Description Pending manual-entry overwrite decision.
type PendingOverwriteDecision struct {
	DecisionID        uuid.UUID            `json:"decision_id" example:"770e8400-e29b-41d4-a716-446655440002"`
	UserID            uuid.UUID            `json:"user_id"`
	ExistingSessionID uuid.UUID            `json:"existing_session_id"`
	Proposed          CreateSessionRequest `json:"proposed"`
	CreatedAt         time.Time            `json:"created_at"`
	ExpiresAt         time.Time            `json:"expires_at"`
}
