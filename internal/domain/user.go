package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Timezone string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	// Usual nocturnal window in HH:MM local time. The nap detector treats
	// sessions inside this window as night sleep, not naps.
	UsualBedtime  string    `gorm:"type:varchar(5);not null;default:'22:00'" json:"usual_bedtime"`
	UsualWakeTime string    `gorm:"type:varchar(5);not null;default:'07:00'" json:"usual_wake_time"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// CreateUserRequest is the request body for creating a user
type CreateUserRequest struct {
	Timezone      string `json:"timezone" validate:"required,timezone"`
	UsualBedtime  string `json:"usual_bedtime,omitempty" validate:"omitempty,clocktime"`
	UsualWakeTime string `json:"usual_wake_time,omitempty" validate:"omitempty,clocktime"`
}

// UserResponse is the response body for user endpoints
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Timezone      string    `json:"timezone"`
	UsualBedtime  string    `json:"usual_bedtime"`
	UsualWakeTime string    `json:"usual_wake_time"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:            u.ID,
		Timezone:      u.Timezone,
		UsualBedtime:  u.UsualBedtime,
		UsualWakeTime: u.UsualWakeTime,
		CreatedAt:     u.CreatedAt,
	}
}
