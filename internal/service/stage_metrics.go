package service

import (
	"math"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
)

const (
	// WakePenalty is the efficiency deduction per recorded interruption.
	WakePenalty = 5.0

	// Ideal stage bands. Deficits below the floor are penalized one point
	// per percentage point of shortfall; exceeding the band earns nothing.
	IdealDeepMinPct = 20.0
	IdealDeepMaxPct = 25.0
	IdealRemMinPct  = 20.0
	IdealRemMaxPct  = 25.0
)

// StagePercentages holds the clamped stage composition of a session.
type StagePercentages struct {
	Light float64
	Deep  float64
	Rem   float64
}

// ComputeStagePercentages converts stage durations into percentages of the
// total session duration, clamped so the three never sum above 100.
// A zero total duration yields all zeros.
func ComputeStagePercentages(total, light, deep, rem time.Duration) StagePercentages {
	if total <= 0 {
		return StagePercentages{}
	}

	t := total.Minutes()
	p := StagePercentages{
		Light: clampPct(light.Minutes() / t * 100),
		Deep:  clampPct(deep.Minutes() / t * 100),
		Rem:   clampPct(rem.Minutes() / t * 100),
	}

	// Noisy sensor data can report staged time exceeding the session span.
	// Scale down proportionally instead of rejecting.
	if sum := p.Light + p.Deep + p.Rem; sum > 100 {
		factor := 100 / sum
		p.Light *= factor
		p.Deep *= factor
		p.Rem *= factor
	}

	p.Light = round2(p.Light)
	p.Deep = round2(p.Deep)
	p.Rem = round2(p.Rem)
	return p
}

// ComputeEfficiency scores a session 0-100 from its stage balance and
// interruption count. A zero-duration session always scores 0.
func ComputeEfficiency(total time.Duration, deepPct, remPct float64, wakeCount int) float64 {
	if total <= 0 {
		return 0
	}
	if wakeCount < 0 {
		wakeCount = 0
	}

	score := 100.0
	score -= WakePenalty * float64(wakeCount)
	score -= math.Max(0, IdealDeepMinPct-deepPct)
	score -= math.Max(0, IdealRemMinPct-remPct)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return round2(score)
}

// ApplyStageMetrics derives stage percentages (when staged intervals are
// present) and the efficiency score for a session, in place. Called on
// every read path so efficiency is never stale persisted state.
func ApplyStageMetrics(s *domain.SleepSession) {
	total := s.Duration()
	if total <= 0 {
		s.LightPct, s.DeepPct, s.RemPct, s.Efficiency = 0, 0, 0, 0
		return
	}

	if len(s.Stages) > 0 {
		var light, deep, rem time.Duration
		for _, st := range s.Stages {
			switch st.Type {
			case domain.StageLight, domain.StageSleeping:
				light += st.Duration()
			case domain.StageDeep:
				deep += st.Duration()
			case domain.StageRem:
				rem += st.Duration()
			}
		}
		p := ComputeStagePercentages(total, light, deep, rem)
		s.LightPct, s.DeepPct, s.RemPct = p.Light, p.Deep, p.Rem
	} else {
		// Manual entries carry no stage detail; keep whatever composition
		// is already on the session, clamped to a valid sum.
		if sum := s.LightPct + s.DeepPct + s.RemPct; sum > 100 {
			factor := 100 / sum
			s.LightPct = round2(s.LightPct * factor)
			s.DeepPct = round2(s.DeepPct * factor)
			s.RemPct = round2(s.RemPct * factor)
		}
	}

	// Sessions without any stage composition are scored on wakes alone;
	// the stage-balance penalty only applies when composition is known.
	if s.LightPct+s.DeepPct+s.RemPct > 0 {
		s.Efficiency = ComputeEfficiency(total, s.DeepPct, s.RemPct, s.WakeCount)
	} else {
		s.Efficiency = ComputeEfficiency(total, IdealDeepMinPct, IdealRemMinPct, s.WakeCount)
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
