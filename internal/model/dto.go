package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse is the standard error body for all endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StartSessionRequest starts a new mood session for the current user.
// DurationDays defaults to 7, FrequencyPerDay defaults to the stored
// preference.
type StartSessionRequest struct {
	CategoryID      uuid.UUID `json:"category_id" binding:"required"`
	FrequencyPerDay int       `json:"frequency_per_day"`
	DurationDays    int       `json:"duration_days"`
}

// EndSessionRequest ends the given session. Reason "completed" marks a
// natural finish, anything else cancels.
type EndSessionRequest struct {
	Reason string `json:"reason"`
}

// UpdatePreferencesRequest mutates the user's notification preferences.
// Pointer fields distinguish "leave unchanged" from zero values.
type UpdatePreferencesRequest struct {
	Frequency  *int    `json:"frequency"`
	QuietStart *string `json:"quiet_start"`
	QuietEnd   *string `json:"quiet_end"`
	AllowPush  *bool   `json:"allow_push"`
	Timezone   *string `json:"timezone"`
}

// RegisterDeviceRequest registers a push token for the current user.
type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// UpcomingEntry is the client-safe view of a pending schedule entry.
type UpcomingEntry struct {
	ID          uuid.UUID `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Category    string    `json:"category,omitempty"`
}

// MeResponse is the aggregate the mobile client renders its home screen from.
type MeResponse struct {
	User          User            `json:"user"`
	Preferences   *Preferences    `json:"preferences,omitempty"`
	ActiveSession *Session        `json:"active_session,omitempty"`
	ActiveDevice  *DeviceToken    `json:"active_device,omitempty"`
	Upcoming      []UpcomingEntry `json:"upcoming"`
	IsSubscriber  bool            `json:"is_subscriber"`
}
