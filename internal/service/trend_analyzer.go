package service

import (
	"math"
	"sort"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
)

const (
	// Bedtime/wake variability mapping: a std of this many minutes or more
	// scores zero consistency.
	maxConsistencyStdMinutes = 120.0

	// Flat-trend tolerances for the half-window comparison.
	trendDurationToleranceHours = 0.25
	trendEfficiencyTolerance    = 2.0
)

// TrendAnalyzer aggregates consolidated nights into weekly statistics.
type TrendAnalyzer interface {
	Analyze(nights []domain.SleepSession, from, to time.Time) *domain.WeeklyTrend
}

type trendAnalyzer struct{}

func NewTrendAnalyzer() TrendAnalyzer {
	return &trendAnalyzer{}
}

// Analyze computes window statistics over nights ordered oldest-first or
// newest-first; ordering is normalized internally.
func (a *trendAnalyzer) Analyze(nights []domain.SleepSession, from, to time.Time) *domain.WeeklyTrend {
	trend := &domain.WeeklyTrend{
		From:      from,
		To:        to,
		Direction: domain.TrendFlat,
	}
	if len(nights) == 0 {
		return trend
	}

	ordered := make([]domain.SleepSession, len(nights))
	copy(ordered, nights)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartAt.Before(ordered[j].StartAt)
	})

	trend.NightCount = len(ordered)

	var durations, efficiencies, lights, deeps, rems, wakes []float64
	var bedtimes, waketimes []float64
	var weekdayDur, weekendDur, weekdayEff, weekendEff []float64

	for _, n := range ordered {
		loc := n.Location()
		startLocal := n.StartAt.In(loc)
		endLocal := n.EndAt.In(loc)

		durations = append(durations, n.Duration().Hours())
		efficiencies = append(efficiencies, n.Efficiency)
		lights = append(lights, n.LightPct)
		deeps = append(deeps, n.DeepPct)
		rems = append(rems, n.RemPct)
		wakes = append(wakes, float64(n.WakeCount))

		// Shift clock times to minutes-after-noon so bedtimes straddling
		// midnight don't explode the variance.
		bedtimes = append(bedtimes, minutesAfterNoon(startLocal))
		waketimes = append(waketimes, minutesAfterNoon(endLocal))

		// A Friday or Saturday start is a weekend night.
		switch startLocal.Weekday() {
		case time.Friday, time.Saturday:
			weekendDur = append(weekendDur, n.Duration().Hours())
			weekendEff = append(weekendEff, n.Efficiency)
		default:
			weekdayDur = append(weekdayDur, n.Duration().Hours())
			weekdayEff = append(weekdayEff, n.Efficiency)
		}
	}

	trend.MeanDurationHours = round2(mean(durations))
	trend.MeanEfficiency = round2(mean(efficiencies))
	trend.MeanLightPct = round2(mean(lights))
	trend.MeanDeepPct = round2(mean(deeps))
	trend.MeanRemPct = round2(mean(rems))
	trend.MeanWakeCount = round2(mean(wakes))

	trend.ConsistencyScore = consistencyScore(bedtimes, waketimes)

	trend.WeekdayMeanDurationHours = round2(mean(weekdayDur))
	trend.WeekendMeanDurationHours = round2(mean(weekendDur))
	trend.WeekdayMeanEfficiency = round2(mean(weekdayEff))
	trend.WeekendMeanEfficiency = round2(mean(weekendEff))

	trend.Direction = trendDirection(ordered)

	return trend
}

// consistencyScore maps bedtime/wake-time variability to 0-100.
// A combined std of 0 minutes scores 100; 120 minutes or more scores 0.
func consistencyScore(bedtimes, waketimes []float64) float64 {
	if len(bedtimes) == 0 {
		return 0
	}

	combined := (stddev(bedtimes) + stddev(waketimes)) / 2
	if combined > maxConsistencyStdMinutes {
		combined = maxConsistencyStdMinutes
	}
	return math.Round((1-combined/maxConsistencyStdMinutes)*1000) / 10
}

// trendDirection compares the most recent half-window against the prior one
// of equal length. Differences inside the tolerances report flat.
func trendDirection(ordered []domain.SleepSession) domain.TrendDirection {
	if len(ordered) < 4 {
		return domain.TrendFlat
	}

	half := len(ordered) / 2
	older := ordered[:half]
	recent := ordered[len(ordered)-half:]

	durDelta := meanDurationHours(recent) - meanDurationHours(older)
	effDelta := meanEfficiency(recent) - meanEfficiency(older)

	improving := durDelta > trendDurationToleranceHours || effDelta > trendEfficiencyTolerance
	declining := durDelta < -trendDurationToleranceHours || effDelta < -trendEfficiencyTolerance

	switch {
	case improving && !declining:
		return domain.TrendImproving
	case declining && !improving:
		return domain.TrendDeclining
	default:
		return domain.TrendFlat
	}
}

func meanDurationHours(sessions []domain.SleepSession) float64 {
	vals := make([]float64, len(sessions))
	for i, s := range sessions {
		vals[i] = s.Duration().Hours()
	}
	return mean(vals)
}

func meanEfficiency(sessions []domain.SleepSession) float64 {
	vals := make([]float64, len(sessions))
	for i, s := range sessions {
		vals[i] = s.Efficiency
	}
	return mean(vals)
}

// minutesAfterNoon returns minutes elapsed since the previous 12:00,
// keeping typical bedtimes (22:00-02:00) numerically contiguous.
func minutesAfterNoon(t time.Time) float64 {
	m := t.Hour()*60 + t.Minute()
	return float64(wrapMinutes(m - 12*60))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
