package service

import (
	"context"
	"sort"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/blaisecz/sleepsense/internal/source"
	"github.com/blaisecz/sleepsense/pkg/pagination"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultMergeGap is the largest gap between same-day fragments still
// treated as continuous sleep when no explicit gap is configured.
const DefaultMergeGap = 30 * time.Minute

// Consolidator merges sessions from all sources into a single consistent
// history and resolves same-day fragmentation into logical nights.
type Consolidator interface {
	// Sessions returns the merged, deduplicated session list for the window,
	// sorted by start time descending.
	Sessions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error)
	// List is Sessions with cursor pagination applied, for the HTTP surface.
	List(ctx context.Context, userID uuid.UUID, filter domain.SessionFilter) (*domain.SessionListResponse, error)
	// ConsolidateRange produces one ConsolidatedNight per local calendar day
	// in the window, newest first. fullDay forces non-adjacent same-day
	// fragments to be summed into the night as well.
	ConsolidateRange(ctx context.Context, userID uuid.UUID, from, to time.Time, fullDay bool) ([]domain.ConsolidatedNight, error)
}

type consolidator struct {
	sources  []source.Source
	mergeGap time.Duration
}

// NewConsolidator builds a consolidator over the given sources. Source order
// is the deterministic tiebreak for concatenation; completion order of the
// concurrent reads never affects the output.
func NewConsolidator(sources []source.Source, mergeGap time.Duration) Consolidator {
	if mergeGap <= 0 {
		mergeGap = DefaultMergeGap
	}
	return &consolidator{
		sources:  sources,
		mergeGap: mergeGap,
	}
}

func (c *consolidator) Sessions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.SleepSession, error) {
	tracer := otel.Tracer("sleepsense-api/consolidator")
	ctx, span := tracer.Start(ctx, "Consolidator.Sessions",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("window.from", from.Format(time.RFC3339)),
			attribute.String("window.to", to.Format(time.RFC3339)),
		),
	)
	defer span.End()

	// Fan out one read per source; results land in fixed slots so the
	// merged order is independent of completion order.
	results := make([][]domain.SleepSession, len(c.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = src.Read(gctx, userID, from, to)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		// Only caller cancellation reaches here; sources themselves never fail.
		return nil, err
	}

	var sessions []domain.SleepSession
	for _, batch := range results {
		sessions = append(sessions, batch...)
	}

	for i := range sessions {
		ApplyStageMetrics(&sessions[i])
	}

	sortSessionsDesc(sessions)
	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	return sessions, nil
}

func (c *consolidator) List(ctx context.Context, userID uuid.UUID, filter domain.SessionFilter) (*domain.SessionListResponse, error) {
	from, to := filterWindow(filter)
	sessions, err := c.Sessions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	// The merged list spans multiple stores, so the cursor is applied over
	// the already-sorted in-memory sequence.
	if filter.Cursor != "" {
		if cursor, err := pagination.DecodeCursor(filter.Cursor); err == nil && cursor != nil {
			idx := 0
			for idx < len(sessions) && !cursor.After(sessions[idx].StartAt, sessions[idx].ID) {
				idx++
			}
			sessions = sessions[idx:]
		}
	}

	limit := pagination.NormalizeLimit(filter.Limit)
	hasMore := len(sessions) > limit
	if hasMore {
		sessions = sessions[:limit]
	}

	response := &domain.SessionListResponse{
		Data: make([]domain.SessionResponse, len(sessions)),
		Pagination: domain.PaginationResponse{
			HasMore: hasMore,
		},
	}
	for i, s := range sessions {
		response.Data[i] = s.ToResponse()
	}

	if hasMore && len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		cursor := &pagination.Cursor{ID: last.ID, StartAt: last.StartAt}
		response.Pagination.NextCursor = cursor.Encode()
	}

	return response, nil
}

func (c *consolidator) ConsolidateRange(ctx context.Context, userID uuid.UUID, from, to time.Time, fullDay bool) ([]domain.ConsolidatedNight, error) {
	sessions, err := c.Sessions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]domain.SleepSession)
	for _, s := range sessions {
		day := s.LocalDay()
		byDay[day] = append(byDay[day], s)
	}

	nights := make([]domain.ConsolidatedNight, 0, len(byDay))
	for day, group := range byDay {
		sort.Slice(group, func(i, j int) bool {
			if group[i].StartAt.Equal(group[j].StartAt) {
				return group[i].ID.String() < group[j].ID.String()
			}
			return group[i].StartAt.Before(group[j].StartAt)
		})

		if fullDay {
			nights = append(nights, c.mergeGroup(day, group, true))
			continue
		}

		// Merge only runs of overlapping or closely-adjacent fragments;
		// detached sessions on the same day stay distinct entries.
		runStart := 0
		for i := 1; i <= len(group); i++ {
			if i < len(group) && group[i].StartAt.Sub(group[i-1].EndAt) <= c.mergeGap {
				continue
			}
			nights = append(nights, c.mergeGroup(day, group[runStart:i], false))
			runStart = i
		}
	}

	sort.Slice(nights, func(i, j int) bool {
		if nights[i].Session.StartAt.Equal(nights[j].Session.StartAt) {
			return nights[i].Session.ID.String() < nights[j].Session.ID.String()
		}
		return nights[i].Session.StartAt.After(nights[j].Session.StartAt)
	})

	return nights, nil
}

// mergeGroup folds a run of same-day sessions into one ConsolidatedNight.
// Duration is the union of intervals, wake counts sum, and stage
// percentages are duration-weighted averages where stageless sessions
// contribute zero weight but keep their duration and wakes.
func (c *consolidator) mergeGroup(day string, group []domain.SleepSession, fullDay bool) domain.ConsolidatedNight {
	if len(group) == 1 {
		s := group[0]
		return domain.ConsolidatedNight{
			Day:                  day,
			Session:              s,
			TotalDurationMinutes: round2(s.Duration().Minutes()),
			MergedCount:          1,
			FullyConsolidated:    fullDay,
		}
	}

	// The derived ID is salted with the run's first start time so that two
	// distinct merged runs on the same day get distinct identifiers.
	seed := "night:" + group[0].UserID.String() + ":" + day + ":" + group[0].StartAt.UTC().Format(time.RFC3339Nano)
	merged := domain.SleepSession{
		ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)),
		UserID:        group[0].UserID,
		StartAt:       group[0].StartAt,
		EndAt:         group[0].EndAt,
		Source:        domain.SourceDerived,
		LocalTimezone: group[0].LocalTimezone,
	}

	intervals := make([][2]time.Time, 0, len(group))
	var weightedLight, weightedDeep, weightedRem, stageWeight float64
	for _, s := range group {
		if s.StartAt.Before(merged.StartAt) {
			merged.StartAt = s.StartAt
		}
		if s.EndAt.After(merged.EndAt) {
			merged.EndAt = s.EndAt
		}
		merged.WakeCount += s.WakeCount
		intervals = append(intervals, [2]time.Time{s.StartAt, s.EndAt})

		if s.LightPct+s.DeepPct+s.RemPct > 0 {
			w := s.Duration().Minutes()
			weightedLight += s.LightPct * w
			weightedDeep += s.DeepPct * w
			weightedRem += s.RemPct * w
			stageWeight += w
		}
	}

	if stageWeight > 0 {
		merged.LightPct = round2(weightedLight / stageWeight)
		merged.DeepPct = round2(weightedDeep / stageWeight)
		merged.RemPct = round2(weightedRem / stageWeight)
	}

	union := intervalUnion(intervals)
	merged.Efficiency = ComputeEfficiency(union, merged.DeepPct, merged.RemPct, merged.WakeCount)
	if merged.LightPct+merged.DeepPct+merged.RemPct == 0 {
		merged.Efficiency = ComputeEfficiency(union, IdealDeepMinPct, IdealRemMinPct, merged.WakeCount)
	}

	return domain.ConsolidatedNight{
		Day:                  day,
		Session:              merged,
		TotalDurationMinutes: round2(union.Minutes()),
		MergedCount:          len(group),
		FullyConsolidated:    fullDay,
	}
}

// intervalUnion sums intervals without double-counting overlaps.
func intervalUnion(intervals [][2]time.Time) time.Duration {
	if len(intervals) == 0 {
		return 0
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i][0].Before(intervals[j][0])
	})

	var total time.Duration
	curStart, curEnd := intervals[0][0], intervals[0][1]
	for _, iv := range intervals[1:] {
		if iv[0].After(curEnd) {
			total += curEnd.Sub(curStart)
			curStart, curEnd = iv[0], iv[1]
			continue
		}
		if iv[1].After(curEnd) {
			curEnd = iv[1]
		}
	}
	total += curEnd.Sub(curStart)
	return total
}

func sortSessionsDesc(sessions []domain.SleepSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartAt.Equal(sessions[j].StartAt) {
			return sessions[i].ID.String() < sessions[j].ID.String()
		}
		return sessions[i].StartAt.After(sessions[j].StartAt)
	})
}

// filterWindow derives a concrete fetch window from an optional filter.
// Sources need bounded ranges, so open filters default to the last year.
func filterWindow(filter domain.SessionFilter) (time.Time, time.Time) {
	now := time.Now().UTC()
	from := now.AddDate(-1, 0, 0)
	to := now.Add(24 * time.Hour)
	if filter.From != nil {
		from = *filter.From
	}
	if filter.To != nil {
		to = *filter.To
	}
	return from, to
}
