package source

import (
	"context"
	"fmt"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	platformRequestTimeout = 10 * time.Second

	// Heart-rate samples change rarely for a finished session, so reads are
	// cached briefly to avoid hammering the platform on repeated analyses.
	heartRateCacheTTL     = 5 * time.Minute
	heartRateCacheCleanup = 10 * time.Minute
)

// stageCodeMap translates platform stage codes to domain stage types.
// Codes the platform adds in future versions fall back to StageUnknown.
var stageCodeMap = map[string]domain.StageType{
	"awake":      domain.StageAwake,
	"light":      domain.StageLight,
	"deep":       domain.StageDeep,
	"rem":        domain.StageRem,
	"sleeping":   domain.StageSleeping,
	"out_of_bed": domain.StageOutOfBed,
}

// platformRecord is the wire shape of a platform sleep record.
type platformRecord struct {
	ID        string          `json:"id"`
	StartAt   time.Time       `json:"start_at"`
	EndAt     time.Time       `json:"end_at"`
	Timezone  string          `json:"timezone"`
	WakeCount int             `json:"wake_count"`
	Stages    []platformStage `json:"stages"`
}

type platformStage struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Code    string    `json:"code"`
}

type recordsResponse struct {
	Records []platformRecord `json:"records"`
}

type heartRateResponse struct {
	Samples []domain.HeartRateSample `json:"samples"`
}

// PlatformSource reads sessions from the external health platform API.
type PlatformSource struct {
	client  *resty.Client
	log     *zap.Logger
	hrCache *cache.Cache
}

// NewPlatformSource builds a platform adapter against the given base URL.
// Returns nil when baseURL is empty (platform integration not configured).
func NewPlatformSource(baseURL, apiKey string, log *zap.Logger) *PlatformSource {
	if baseURL == "" {
		return nil
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(platformRequestTimeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &PlatformSource{
		client:  client,
		log:     log.Named("source.platform"),
		hrCache: cache.New(heartRateCacheTTL, heartRateCacheCleanup),
	}
}

func (s *PlatformSource) Name() string {
	return "platform"
}

// Read fetches platform records for the window. A failed request resolves to
// an empty result; malformed records are skipped and only an aggregate count
// is logged.
func (s *PlatformSource) Read(ctx context.Context, userID uuid.UUID, from, to time.Time) []domain.SleepSession {
	if s == nil {
		return nil
	}

	var payload recordsResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"user_id": userID.String(),
			"start":   from.UTC().Format(time.RFC3339),
			"end":     to.UTC().Format(time.RFC3339),
		}).
		SetResult(&payload).
		Get("/v1/sleep/records")
	if err != nil {
		s.log.Error("platform read failed", zap.Error(err))
		return nil
	}
	if resp.IsError() {
		s.log.Error("platform read rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("user_id", userID.String()))
		return nil
	}

	sessions := make([]domain.SleepSession, 0, len(payload.Records))
	skipped := 0
	for _, rec := range payload.Records {
		session, ok := s.mapRecord(userID, rec)
		if !ok {
			skipped++
			continue
		}
		s.attachHeartRate(ctx, rec.ID, &session)
		sessions = append(sessions, session)
	}
	if skipped > 0 {
		s.log.Warn("skipped malformed platform records",
			zap.Int("skipped", skipped),
			zap.Int("returned", len(sessions)))
	}

	return sessions
}

// mapRecord converts one platform record to a domain session. Records with
// an inverted time range or unparseable identity are rejected.
func (s *PlatformSource) mapRecord(userID uuid.UUID, rec platformRecord) (domain.SleepSession, bool) {
	if rec.EndAt.Before(rec.StartAt) || rec.StartAt.IsZero() || rec.EndAt.IsZero() {
		return domain.SleepSession{}, false
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		// Platform record IDs are opaque; derive a stable UUID when the
		// platform does not use UUIDs itself.
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.ID))
	}

	tz := rec.Timezone
	if tz == "" {
		tz = "UTC"
	} else if _, err := time.LoadLocation(tz); err != nil {
		tz = "UTC"
	}

	wakeCount := rec.WakeCount
	if wakeCount < 0 {
		wakeCount = 0
	}

	stages := make(domain.StageList, 0, len(rec.Stages))
	for _, st := range rec.Stages {
		if st.EndAt.Before(st.StartAt) {
			continue
		}
		stageType, ok := stageCodeMap[st.Code]
		if !ok {
			stageType = domain.StageUnknown
		}
		stages = append(stages, domain.SleepStage{
			StartAt: st.StartAt,
			EndAt:   st.EndAt,
			Type:    stageType,
		})
	}

	return domain.SleepSession{
		ID:            id,
		UserID:        userID,
		StartAt:       rec.StartAt.UTC(),
		EndAt:         rec.EndAt.UTC(),
		Source:        domain.SourcePlatform,
		Stages:        stages,
		WakeCount:     wakeCount,
		LocalTimezone: tz,
	}, true
}

// attachHeartRate fetches auxiliary heart-rate samples for a session.
// Failures only omit the samples, never the session.
func (s *PlatformSource) attachHeartRate(ctx context.Context, recordID string, session *domain.SleepSession) {
	if recordID == "" {
		return
	}

	if cached, found := s.hrCache.Get(recordID); found {
		session.HeartRateSamples = cached.([]domain.HeartRateSample)
		return
	}

	var payload heartRateResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(fmt.Sprintf("/v1/sleep/records/%s/heart-rate", recordID))
	if err != nil || resp.IsError() {
		s.log.Debug("heart-rate fetch failed, omitting samples",
			zap.String("record_id", recordID))
		return
	}

	s.hrCache.Set(recordID, payload.Samples, cache.DefaultExpiration)
	session.HeartRateSamples = payload.Samples
}
