package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/enrichment"
	"github.com/blaisecz/sleepsense/internal/langfuse"
	"github.com/blaisecz/sleepsense/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AnalysisState is the lifecycle state of the most recent analysis request.
type AnalysisState string

const (
	StateIdle      AnalysisState = "idle"
	StateAnalyzing AnalysisState = "analyzing"
	StateCompleted AnalysisState = "completed"
	StateDegraded  AnalysisState = "degraded"
)

// AnalysisOrchestrator sequences consolidation, local calculators and the
// optional remote enrichment. Enrichment failures degrade the result, they
// never fail the request: local findings are always included and remote
// findings are appended when available.
type AnalysisOrchestrator interface {
	// AnalyzeSession builds advice for a single session.
	AnalyzeSession(ctx context.Context, session *domain.SleepSession) *domain.SleepAdvice
	// AnalyzeWeek builds aggregate advice for the trailing seven days
	// ending at end.
	AnalyzeWeek(ctx context.Context, userID uuid.UUID, end time.Time) (*domain.SleepAdvice, *domain.WeeklyTrend, error)
	// State reports the lifecycle state of the most recently started
	// analysis. The state is service-wide, not scoped per request, so
	// under concurrent analyses a caller may observe another request's
	// state.
	State() AnalysisState
}

type analysisOrchestrator struct {
	consolidator Consolidator
	trends       TrendAnalyzer
	recommender  RecommendationGenerator
	userRepo     repository.UserRepository
	enricher     enrichment.AdviceEnricher
	langfuse     langfuse.Client
	timeout      time.Duration
	log          *zap.Logger

	// state holds the AnalysisState of the most recently started analysis,
	// shared by all requests.
	state atomic.Value
}

// NewAnalysisOrchestrator wires the orchestrator. enricher may be nil, in
// which case every result is degraded to local-only advice.
func NewAnalysisOrchestrator(
	consolidator Consolidator,
	trends TrendAnalyzer,
	recommender RecommendationGenerator,
	userRepo repository.UserRepository,
	enricher enrichment.AdviceEnricher,
	lf langfuse.Client,
	timeout time.Duration,
	log *zap.Logger,
) AnalysisOrchestrator {
	o := &analysisOrchestrator{
		consolidator: consolidator,
		trends:       trends,
		recommender:  recommender,
		userRepo:     userRepo,
		enricher:     enricher,
		langfuse:     lf,
		timeout:      timeout,
		log:          log.Named("orchestrator"),
	}
	o.state.Store(StateIdle)
	return o
}

func (o *analysisOrchestrator) State() AnalysisState {
	return o.state.Load().(AnalysisState)
}

func (o *analysisOrchestrator) AnalyzeSession(ctx context.Context, session *domain.SleepSession) *domain.SleepAdvice {
	o.state.Store(StateAnalyzing)

	ApplyStageMetrics(session)
	advice := o.recommender.ForSession(session)

	resp := session.ToResponse()
	o.enrich(ctx, &domain.EnrichmentRequest{Session: &resp, Local: advice}, &advice)

	o.finish(advice.Degraded)
	return &advice
}

func (o *analysisOrchestrator) AnalyzeWeek(ctx context.Context, userID uuid.UUID, end time.Time) (*domain.SleepAdvice, *domain.WeeklyTrend, error) {
	o.state.Store(StateAnalyzing)

	tracer := otel.Tracer("sleepsense-api/orchestrator")
	ctx, span := tracer.Start(ctx, "AnalysisOrchestrator.AnalyzeWeek")
	defer span.End()

	user, err := o.userRepo.GetByID(ctx, userID)
	if err != nil {
		o.state.Store(StateIdle)
		return nil, nil, err
	}

	from := end.AddDate(0, 0, -7)
	nights, err := o.consolidator.ConsolidateRange(ctx, userID, from, end, true)
	if err != nil {
		o.state.Store(StateIdle)
		return nil, nil, err
	}

	sessions := make([]domain.SleepSession, len(nights))
	for i, n := range nights {
		sessions[i] = n.Session
	}

	trend := o.trends.Analyze(sessions, from, end)
	advice := o.recommender.ForWeek(trend, sessions, user)

	o.enrich(ctx, &domain.EnrichmentRequest{Trend: trend, Local: advice}, &advice)

	span.SetAttributes(
		attribute.Int("nights.count", trend.NightCount),
		attribute.Bool("advice.degraded", advice.Degraded),
	)
	if o.langfuse != nil && o.langfuse.IsEnabled() {
		_, _ = o.langfuse.CreateTrace(ctx, langfuse.TraceInput{
			UserID: userID.String(),
			Name:   "sleep-week-analysis",
			Input:  trend,
			Output: advice,
			Tags:   []string{"analysis"},
		})
	}

	o.finish(advice.Degraded)
	return &advice, trend, nil
}

// enrich makes exactly one bounded enrichment attempt and appends remote
// findings to the local advice. Any failure flips the degraded flag.
func (o *analysisOrchestrator) enrich(ctx context.Context, req *domain.EnrichmentRequest, advice *domain.SleepAdvice) {
	if o.enricher == nil {
		advice.Degraded = true
		return
	}

	enrichCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	remote, err := o.enricher.Enrich(enrichCtx, req)
	if err != nil {
		o.log.Warn("enrichment unavailable, returning local advice", zap.Error(err))
		advice.Degraded = true
		return
	}

	advice.Tips = append(advice.Tips, remote.Tips...)
	advice.Warnings = append(advice.Warnings, remote.Warnings...)
	if advice.PositiveReinforcement == "" {
		advice.PositiveReinforcement = remote.PositiveReinforcement
	}
}

func (o *analysisOrchestrator) finish(degraded bool) {
	if degraded {
		o.state.Store(StateDegraded)
	} else {
		o.state.Store(StateCompleted)
	}
}
