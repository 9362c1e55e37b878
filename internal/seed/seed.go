package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const seededDays = 40

// Run seeds the database with sample users and manual sleep sessions.
// Safe to call multiple times.
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.SleepSession{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	users := []domain.User{
		{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Timezone: "Europe/Amsterdam", UsualBedtime: "22:30", UsualWakeTime: "06:30"},
		{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Timezone: "America/New_York", UsualBedtime: "23:30", UsualWakeTime: "07:30"},
		{ID: uuid.MustParse("33333333-3333-3333-3333-333333333333"), Timezone: "Asia/Tokyo", UsualBedtime: "00:00", UsualWakeTime: "07:00"},
		{ID: uuid.MustParse("44444444-4444-4444-4444-444444444444"), Timezone: "Australia/Sydney", UsualBedtime: "21:45", UsualWakeTime: "05:45"},
	}

	for _, user := range users {
		if err := db.Where("id = ?", user.ID).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", user.ID, err)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, user := range users {
		if err := seedSessionsForUser(db, user, rng); err != nil {
			return err
		}
	}

	log.Println("Seed completed")
	return nil
}

func seedSessionsForUser(db *gorm.DB, user domain.User, rng *rand.Rand) error {
	now := time.Now().UTC()
	for i := 0; i < seededDays; i++ {
		date := now.AddDate(0, 0, -i)
		bedtime := time.Date(date.Year(), date.Month(), date.Day(), 22+rng.Intn(2), rng.Intn(60), 0, 0, time.UTC)
		wakeup := bedtime.Add(time.Duration(6+rng.Intn(3)) * time.Hour)
		wakes := rng.Intn(3)

		clientReqID := fmt.Sprintf("seed-night-%s-%d", user.ID, i)
		night := domain.SleepSession{
			UserID:          user.ID,
			StartAt:         bedtime,
			EndAt:           wakeup,
			Source:          domain.SourceManual,
			Stages:          sampleStages(bedtime, wakeup, wakes, rng),
			WakeCount:       wakes,
			LocalTimezone:   user.Timezone,
			ClientRequestID: &clientReqID,
		}

		if err := db.Where("client_request_id = ?", clientReqID).FirstOrCreate(&night).Error; err != nil {
			return fmt.Errorf("failed to create night session: %w", err)
		}

		// Occasional afternoon nap to give the detector something to find.
		if rng.Float32() < 0.4 {
			napStart := time.Date(date.Year(), date.Month(), date.Day(), 13+rng.Intn(4), rng.Intn(60), 0, 0, time.UTC)
			napEnd := napStart.Add(time.Duration(20+rng.Intn(70)) * time.Minute)

			napClientReqID := fmt.Sprintf("seed-nap-%s-%d", user.ID, i)
			nap := domain.SleepSession{
				UserID:          user.ID,
				StartAt:         napStart,
				EndAt:           napEnd,
				Source:          domain.SourceManual,
				WakeCount:       0,
				LocalTimezone:   user.Timezone,
				ClientRequestID: &napClientReqID,
			}

			if err := db.Where("client_request_id = ?", napClientReqID).FirstOrCreate(&nap).Error; err != nil {
				return fmt.Errorf("failed to create nap session: %w", err)
			}
		}
	}
	return nil
}

// sampleStages builds a plausible stage sequence covering the interval:
// a light/deep/rem cycle repeated, with brief awake gaps for each wake.
func sampleStages(start, end time.Time, wakes int, rng *rand.Rand) domain.StageList {
	var stages domain.StageList
	cycle := []domain.StageType{domain.StageLight, domain.StageDeep, domain.StageLight, domain.StageRem}

	cur := start
	idx := 0
	awakeLeft := wakes
	for cur.Before(end) {
		segment := time.Duration(40+rng.Intn(40)) * time.Minute
		if cur.Add(segment).After(end) {
			segment = end.Sub(cur)
		}

		stages = append(stages, domain.SleepStage{
			StartAt: cur,
			EndAt:   cur.Add(segment),
			Type:    cycle[idx%len(cycle)],
		})
		cur = cur.Add(segment)
		idx++

		if awakeLeft > 0 && cur.Add(5*time.Minute).Before(end) {
			stages = append(stages, domain.SleepStage{
				StartAt: cur,
				EndAt:   cur.Add(5 * time.Minute),
				Type:    domain.StageAwake,
			})
			cur = cur.Add(5 * time.Minute)
			awakeLeft--
		}
	}
	return stages
}
