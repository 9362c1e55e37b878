package domain

import "time"

// Deficiency identifies a detected sleep-quality problem.
type Deficiency string

const (
	DeficiencyLowDeep       Deficiency = "low_deep_sleep"
	DeficiencyLowRem        Deficiency = "low_rem_sleep"
	DeficiencyFrequentWakes Deficiency = "frequent_wakes"
	DeficiencyInconsistent  Deficiency = "inconsistent_schedule"
	DeficiencyShortDuration Deficiency = "short_duration"
)

// Recommendation is a single prioritized piece of advice.
// @Description Human-readable recommendation with an estimated impact weight.
type Recommendation struct {
	// Advice text
	Message string `json:"message" example:"Keep a fixed bedtime, even on weekends."`
	// Deficiency that triggered this recommendation
	Deficiency Deficiency `json:"deficiency" example:"inconsistent_schedule"`
	// Estimated impact on sleep quality, higher is more impactful
	Impact float64 `json:"impact" example:"12.5"`
}

// SleepAdvice is the output of sleep analysis.
// @Description Tips, warnings and ideal-time suggestions for a session or window.
type SleepAdvice struct {
	// Sleep-hygiene tips filtered by detected deficiencies
	Tips []string `json:"tips"`
	// Warnings for detected deficiencies
	Warnings []string `json:"warnings"`
	// Encouragement when sleep looks healthy
	PositiveReinforcement string `json:"positive_reinforcement,omitempty"`
	// Recommendations ordered by estimated impact, most impactful first
	PriorityRecommendations []Recommendation `json:"priority_recommendations,omitempty"`
	// Suggested bedtime in HH:MM local time
	IdealBedtime string `json:"ideal_bedtime,omitempty" example:"22:30"`
	// Suggested wake time in HH:MM local time
	IdealWakeTime string `json:"ideal_wake_time,omitempty" example:"06:45"`
	// Suggested nap time in HH:MM local time
	IdealNapTime string `json:"ideal_nap_time,omitempty" example:"13:30"`
	// True when remote enrichment was unavailable and only local analysis ran
	Degraded bool `json:"degraded"`
}

// TrendDirection describes how sleep evolved across a window.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendFlat      TrendDirection = "flat"
)

// WeeklyTrend aggregates consolidated nights over a multi-day window.
// @Description Weekly sleep statistics with consistency and weekday/weekend split.
type WeeklyTrend struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	// Number of nights contributing to the window
	NightCount int `json:"night_count" example:"7"`

	MeanDurationHours float64 `json:"mean_duration_hours" example:"7.4"`
	MeanEfficiency    float64 `json:"mean_efficiency" example:"88.2"`
	MeanLightPct      float64 `json:"mean_light_sleep_percentage" example:"52.1"`
	MeanDeepPct       float64 `json:"mean_deep_sleep_percentage" example:"22.4"`
	MeanRemPct        float64 `json:"mean_rem_sleep_percentage" example:"20.9"`
	MeanWakeCount     float64 `json:"mean_wake_count" example:"1.3"`

	// Consistency of bedtime/wake time across the window (0-100, higher is steadier)
	ConsistencyScore float64 `json:"consistency_score" example:"74.0"`

	WeekdayMeanDurationHours float64 `json:"weekday_mean_duration_hours" example:"7.1"`
	WeekendMeanDurationHours float64 `json:"weekend_mean_duration_hours" example:"8.2"`
	WeekdayMeanEfficiency    float64 `json:"weekday_mean_efficiency" example:"87.0"`
	WeekendMeanEfficiency    float64 `json:"weekend_mean_efficiency" example:"90.5"`

	// Recent half-window compared against the prior half of equal length
	Direction TrendDirection `json:"direction" example:"improving"`
}

// NapImpact buckets a nap's likely effect on subsequent nocturnal sleep.
type NapImpact string

const (
	NapImpactLow    NapImpact = "low"
	NapImpactMedium NapImpact = "medium"
	NapImpactHigh   NapImpact = "high"
)

// Nap is a short off-window session with its estimated impact.
// @Description Detected nap with scored impact on nocturnal sleep.
type Nap struct {
	Session SleepSession `json:"session"`
	// Impact bucket derived from the score
	Impact NapImpact `json:"impact" example:"medium"`
	// Impact score in [0,1]; late long naps score highest
	ImpactScore float64 `json:"impact_score" example:"0.48"`
}

// EnrichmentRequest is the aggregate payload sent to the advice enrichment
// service for a single session or a weekly window.
type EnrichmentRequest struct {
	Session *SessionResponse `json:"session,omitempty"`
	Trend   *WeeklyTrend     `json:"trend,omitempty"`
	Local   SleepAdvice      `json:"local_advice"`
}

// EnrichmentResponse is the structured response from the enrichment service.
type EnrichmentResponse struct {
	Tips                  []string `json:"tips"`
	Warnings              []string `json:"warnings"`
	PositiveReinforcement string   `json:"positive_reinforcement,omitempty"`
}
