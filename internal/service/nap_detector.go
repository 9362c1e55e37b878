package service

import (
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
)

const (
	// MaxNapDuration is the short-sleep threshold: anything at or above it
	// counts as a main sleep period, not a nap.
	MaxNapDuration = 3 * time.Hour

	// Window padding around the usual bedtime/wake time. Sessions starting
	// inside the padded nocturnal window are night sleep, never naps.
	nocturnalPadBefore = 60  // minutes before usual bedtime
	nocturnalPadAfter  = 120 // minutes after usual wake time

	// A nap ending this close to bedtime is assumed to affect the night.
	napInfluenceHours = 8.0
)

// NapDetector classifies short off-window sessions as naps and scores
// their likely impact on subsequent nocturnal sleep.
type NapDetector interface {
	Detect(sessions []domain.SleepSession, user *domain.User) []domain.Nap
}

type napDetector struct{}

func NewNapDetector() NapDetector {
	return &napDetector{}
}

func (d *napDetector) Detect(sessions []domain.SleepSession, user *domain.User) []domain.Nap {
	bedMin := parseClockMinutes(user.UsualBedtime, 22*60)
	wakeMin := parseClockMinutes(user.UsualWakeTime, 7*60)

	windowStart := wrapMinutes(bedMin - nocturnalPadBefore)
	windowEnd := wrapMinutes(wakeMin + nocturnalPadAfter)

	var naps []domain.Nap
	for _, s := range sessions {
		dur := s.Duration()
		if dur <= 0 || dur >= MaxNapDuration {
			continue
		}

		startLocal := s.StartAt.In(s.Location())
		startMin := startLocal.Hour()*60 + startLocal.Minute()
		if inClockWindow(startMin, windowStart, windowEnd) {
			continue
		}

		score := napImpactScore(dur, s.EndAt.In(s.Location()), bedMin)
		naps = append(naps, domain.Nap{
			Session:     s,
			Impact:      bucketNapImpact(score),
			ImpactScore: score,
		})
	}
	return naps
}

// napImpactScore estimates how much a nap will cut into the coming night.
// Longer naps and naps ending closer to bedtime score higher; the result
// is in [0,1].
func napImpactScore(dur time.Duration, endLocal time.Time, bedMin int) float64 {
	durFactor := dur.Hours() / MaxNapDuration.Hours()
	if durFactor > 1 {
		durFactor = 1
	}

	endMin := endLocal.Hour()*60 + endLocal.Minute()
	gapHours := float64(wrapMinutes(bedMin-endMin)) / 60.0
	lateness := 1 - gapHours/napInfluenceHours
	if lateness < 0 {
		lateness = 0
	}

	return round2(0.5*durFactor + 0.5*lateness)
}

func bucketNapImpact(score float64) domain.NapImpact {
	switch {
	case score < 0.33:
		return domain.NapImpactLow
	case score < 0.66:
		return domain.NapImpactMedium
	default:
		return domain.NapImpactHigh
	}
}

// parseClockMinutes converts "HH:MM" to minutes after midnight.
func parseClockMinutes(s string, fallback int) int {
	if len(s) != 5 || s[2] != ':' {
		return fallback
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fallback
	}
	return h*60 + m
}

func wrapMinutes(m int) int {
	return ((m % 1440) + 1440) % 1440
}

// inClockWindow reports whether minute-of-day m falls inside a clock window
// that may wrap past midnight.
func inClockWindow(m, start, end int) bool {
	if start <= end {
		return m >= start && m <= end
	}
	return m >= start || m <= end
}
