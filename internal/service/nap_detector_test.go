package service

import (
	"testing"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
)

func napTestUser() *domain.User {
	return &domain.User{
		ID:            uuid.New(),
		Timezone:      "UTC",
		UsualBedtime:  "22:00",
		UsualWakeTime: "07:00",
	}
}

func napSession(start time.Time, dur time.Duration) domain.SleepSession {
	return domain.SleepSession{
		ID:            uuid.New(),
		StartAt:       start,
		EndAt:         start.Add(dur),
		LocalTimezone: "UTC",
	}
}

func TestNapDetector_DetectsAfternoonNap(t *testing.T) {
	d := NewNapDetector()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	naps := d.Detect([]domain.SleepSession{
		napSession(day.Add(14*time.Hour), time.Hour), // 14:00, 1h
	}, napTestUser())

	if len(naps) != 1 {
		t.Fatalf("expected 1 nap, got %d", len(naps))
	}
	if naps[0].ImpactScore <= 0 || naps[0].ImpactScore > 1 {
		t.Errorf("impact score out of range: %.2f", naps[0].ImpactScore)
	}
}

func TestNapDetector_SkipsNocturnalAndLongSessions(t *testing.T) {
	d := NewNapDetector()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session domain.SleepSession
	}{
		// 23:00 start: inside the padded nocturnal window.
		{"night sleep", napSession(day.Add(23*time.Hour), 8*time.Hour)},
		// 21:30 start: within one hour before usual bedtime.
		{"early night start", napSession(day.Add(21*time.Hour+30*time.Minute), 2*time.Hour)},
		// 08:30 start: within two hours after usual wake time.
		{"morning lie-in", napSession(day.Add(8*time.Hour+30*time.Minute), time.Hour)},
		// Afternoon but three hours long: a main sleep period.
		{"long afternoon sleep", napSession(day.Add(13*time.Hour), 3*time.Hour)},
		// Zero duration.
		{"empty interval", napSession(day.Add(14*time.Hour), 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if naps := d.Detect([]domain.SleepSession{tt.session}, napTestUser()); len(naps) != 0 {
				t.Errorf("expected no naps, got %+v", naps)
			}
		})
	}
}

func TestNapDetector_LateNapsScoreHigher(t *testing.T) {
	d := NewNapDetector()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	user := napTestUser()

	morning := d.Detect([]domain.SleepSession{napSession(day.Add(10*time.Hour), time.Hour)}, user)
	evening := d.Detect([]domain.SleepSession{napSession(day.Add(19*time.Hour), time.Hour)}, user)

	if len(morning) != 1 || len(evening) != 1 {
		t.Fatalf("expected one nap each, got %d and %d", len(morning), len(evening))
	}
	if evening[0].ImpactScore <= morning[0].ImpactScore {
		t.Errorf("evening nap (%.2f) should outscore morning nap (%.2f)",
			evening[0].ImpactScore, morning[0].ImpactScore)
	}
	if evening[0].Impact == domain.NapImpactLow {
		t.Errorf("hour-long nap ending at 20:00 should not be low impact")
	}
}

func TestNapDetector_LongerNapsScoreHigher(t *testing.T) {
	d := NewNapDetector()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	user := napTestUser()

	short := d.Detect([]domain.SleepSession{napSession(day.Add(13*time.Hour), 20*time.Minute)}, user)
	long := d.Detect([]domain.SleepSession{napSession(day.Add(13*time.Hour), 2*time.Hour)}, user)

	if len(short) != 1 || len(long) != 1 {
		t.Fatalf("expected one nap each")
	}
	if long[0].ImpactScore <= short[0].ImpactScore {
		t.Errorf("longer nap (%.2f) should outscore shorter one (%.2f)",
			long[0].ImpactScore, short[0].ImpactScore)
	}
}

func TestBucketNapImpact(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.NapImpact
	}{
		{0.1, domain.NapImpactLow},
		{0.32, domain.NapImpactLow},
		{0.33, domain.NapImpactMedium},
		{0.5, domain.NapImpactMedium},
		{0.66, domain.NapImpactHigh},
		{0.9, domain.NapImpactHigh},
	}

	for _, tt := range tests {
		if got := bucketNapImpact(tt.score); got != tt.want {
			t.Errorf("bucketNapImpact(%.2f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestInClockWindow(t *testing.T) {
	// Window wrapping midnight: 21:00 to 09:00.
	start, end := 21*60, 9*60

	if !inClockWindow(23*60, start, end) {
		t.Errorf("23:00 should be inside a 21:00-09:00 window")
	}
	if !inClockWindow(2*60, start, end) {
		t.Errorf("02:00 should be inside a 21:00-09:00 window")
	}
	if inClockWindow(14*60, start, end) {
		t.Errorf("14:00 should be outside a 21:00-09:00 window")
	}
}
