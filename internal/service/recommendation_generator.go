package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
)

const (
	// Deficiency thresholds used for warnings and tip selection.
	minHealthyDeepPct     = IdealDeepMinPct
	minHealthyRemPct      = IdealRemMinPct
	maxHealthyWakes       = 2
	minHealthyConsistency = 60.0
	minHealthyHours       = 7.0

	// Ideal nap time lands this long after the usual wake time.
	napOffsetAfterWake = 6 * time.Hour
)

// tipCatalogue maps each deficiency to fixed sleep-hygiene tips.
var tipCatalogue = map[domain.Deficiency][]string{
	domain.DeficiencyLowDeep: {
		"Avoid alcohol and heavy meals within three hours of bedtime; both suppress deep sleep.",
		"Keep the bedroom cool (around 18°C); a lower core temperature promotes deep sleep.",
	},
	domain.DeficiencyLowRem: {
		"Protect the last third of your night: REM sleep concentrates before waking, so avoid cutting mornings short.",
		"Skip caffeine after mid-afternoon; it delays and fragments REM sleep.",
	},
	domain.DeficiencyFrequentWakes: {
		"Limit fluids in the hour before bed to reduce night-time awakenings.",
		"Keep the bedroom dark and quiet; consider a sleep mask or earplugs if surroundings are noisy.",
	},
	domain.DeficiencyInconsistent: {
		"Keep a fixed bedtime and wake time, including weekends; a steady rhythm improves sleep quality more than extra hours.",
		"Build a short wind-down routine and start it at the same time every evening.",
	},
	domain.DeficiencyShortDuration: {
		"Move bedtime earlier in 15-minute steps until you reach at least seven hours in bed.",
		"Treat sleep as an appointment: block the hours in your calendar before planning the evening.",
	},
}

var warningCatalogue = map[domain.Deficiency]string{
	domain.DeficiencyLowDeep:       "Deep sleep share is below the healthy band (20-25%).",
	domain.DeficiencyLowRem:        "REM sleep share is below the healthy band (20-25%).",
	domain.DeficiencyFrequentWakes: "Frequent night-time awakenings detected.",
	domain.DeficiencyInconsistent:  "Bedtime and wake time vary strongly across the week.",
	domain.DeficiencyShortDuration: "Average sleep duration is below seven hours.",
}

// finding is a detected deficiency with its estimated impact weight.
type finding struct {
	deficiency domain.Deficiency
	impact     float64
}

// RecommendationGenerator turns computed metrics into prioritized,
// human-readable advice.
type RecommendationGenerator interface {
	// ForSession builds advice for a single analyzed session.
	ForSession(session *domain.SleepSession) domain.SleepAdvice
	// ForWeek builds advice for a weekly trend; recentNights feed the
	// ideal-time suggestions.
	ForWeek(trend *domain.WeeklyTrend, recentNights []domain.SleepSession, user *domain.User) domain.SleepAdvice
}

type recommendationGenerator struct{}

func NewRecommendationGenerator() RecommendationGenerator {
	return &recommendationGenerator{}
}

func (g *recommendationGenerator) ForSession(session *domain.SleepSession) domain.SleepAdvice {
	var findings []finding

	hasStages := session.LightPct+session.DeepPct+session.RemPct > 0
	if hasStages {
		if session.DeepPct < minHealthyDeepPct {
			findings = append(findings, finding{domain.DeficiencyLowDeep, minHealthyDeepPct - session.DeepPct})
		}
		if session.RemPct < minHealthyRemPct {
			findings = append(findings, finding{domain.DeficiencyLowRem, minHealthyRemPct - session.RemPct})
		}
	}
	if session.WakeCount > maxHealthyWakes {
		findings = append(findings, finding{domain.DeficiencyFrequentWakes, WakePenalty * float64(session.WakeCount-maxHealthyWakes)})
	}
	if session.Duration().Hours() < minHealthyHours && session.Duration() > 0 {
		findings = append(findings, finding{domain.DeficiencyShortDuration, (minHealthyHours - session.Duration().Hours()) * 10})
	}

	advice := adviceFromFindings(findings)
	if len(findings) == 0 {
		advice.PositiveReinforcement = fmt.Sprintf(
			"Solid night: %.1f hours with an efficiency of %.0f. Keep it up.",
			session.Duration().Hours(), session.Efficiency)
	}
	return advice
}

func (g *recommendationGenerator) ForWeek(trend *domain.WeeklyTrend, recentNights []domain.SleepSession, user *domain.User) domain.SleepAdvice {
	var findings []finding

	if trend.MeanDeepPct > 0 && trend.MeanDeepPct < minHealthyDeepPct {
		findings = append(findings, finding{domain.DeficiencyLowDeep, minHealthyDeepPct - trend.MeanDeepPct})
	}
	if trend.MeanRemPct > 0 && trend.MeanRemPct < minHealthyRemPct {
		findings = append(findings, finding{domain.DeficiencyLowRem, minHealthyRemPct - trend.MeanRemPct})
	}
	if trend.MeanWakeCount > maxHealthyWakes {
		findings = append(findings, finding{domain.DeficiencyFrequentWakes, WakePenalty * (trend.MeanWakeCount - maxHealthyWakes)})
	}
	if trend.NightCount > 0 && trend.ConsistencyScore < minHealthyConsistency {
		findings = append(findings, finding{domain.DeficiencyInconsistent, (minHealthyConsistency - trend.ConsistencyScore) / 2})
	}
	if trend.NightCount > 0 && trend.MeanDurationHours < minHealthyHours {
		findings = append(findings, finding{domain.DeficiencyShortDuration, (minHealthyHours - trend.MeanDurationHours) * 10})
	}

	advice := adviceFromFindings(findings)
	if len(findings) == 0 && trend.NightCount > 0 {
		advice.PositiveReinforcement = fmt.Sprintf(
			"A consistent week: %.1f hours on average with an efficiency of %.0f.",
			trend.MeanDurationHours, trend.MeanEfficiency)
	}

	g.fillIdealTimes(&advice, recentNights, user)
	return advice
}

// adviceFromFindings orders findings by impact and expands them into
// warnings, tips and priority recommendations. Only the first
// recommendation is the summarized "priority" item for callers that
// surface a single line.
func adviceFromFindings(findings []finding) domain.SleepAdvice {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].impact > findings[j].impact
	})

	advice := domain.SleepAdvice{
		Tips:     []string{},
		Warnings: []string{},
	}
	for _, f := range findings {
		advice.Warnings = append(advice.Warnings, warningCatalogue[f.deficiency])
		advice.Tips = append(advice.Tips, tipCatalogue[f.deficiency]...)
		advice.PriorityRecommendations = append(advice.PriorityRecommendations, domain.Recommendation{
			Message:    tipCatalogue[f.deficiency][0],
			Deficiency: f.deficiency,
			Impact:     round2(f.impact),
		})
	}
	return advice
}

// fillIdealTimes suggests bedtime/wake/nap times from the person's own
// best recent nights: the median start and end time-of-day of the top
// half by efficiency.
func (g *recommendationGenerator) fillIdealTimes(advice *domain.SleepAdvice, nights []domain.SleepSession, user *domain.User) {
	if len(nights) < 3 {
		// Too little history to learn from; fall back to the user's own
		// stated schedule.
		bedMin := parseClockMinutes(user.UsualBedtime, 22*60)
		wakeMin := parseClockMinutes(user.UsualWakeTime, 7*60)
		advice.IdealBedtime = minutesToClock(bedMin)
		advice.IdealWakeTime = minutesToClock(wakeMin)
		advice.IdealNapTime = minutesToClock(wrapMinutes(wakeMin + int(napOffsetAfterWake.Minutes())))
		return
	}

	best := make([]domain.SleepSession, len(nights))
	copy(best, nights)
	sort.Slice(best, func(i, j int) bool {
		return best[i].Efficiency > best[j].Efficiency
	})
	half := (len(best) + 1) / 2
	best = best[:half]

	bedtimes := make([]int, 0, len(best))
	waketimes := make([]int, 0, len(best))
	for _, n := range best {
		loc := n.Location()
		start := n.StartAt.In(loc)
		end := n.EndAt.In(loc)
		bedtimes = append(bedtimes, wrapMinutes(start.Hour()*60+start.Minute()-12*60))
		waketimes = append(waketimes, end.Hour()*60+end.Minute())
	}

	bedMin := wrapMinutes(medianInt(bedtimes) + 12*60)
	wakeMin := medianInt(waketimes)
	advice.IdealBedtime = minutesToClock(bedMin)
	advice.IdealWakeTime = minutesToClock(wakeMin)

	napMin := wrapMinutes(wakeMin + int(napOffsetAfterWake.Minutes()))
	advice.IdealNapTime = minutesToClock(napMin)
}

func medianInt(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func minutesToClock(minutes int) string {
	minutes = wrapMinutes(minutes)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
