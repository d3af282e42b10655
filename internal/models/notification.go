package models

import "time"

// Push sound profiles. Immediate bookings ring differently.
const (
	SoundNormalBooking    = "normal_booking"
	SoundEmergencyBooking = "emergency_booking"
)

// PushNotification is the payload handed to the push sender. RecipientEmail is
// the audience predicate: it resolves to the device tokens registered for the
// user holding that email.
type PushNotification struct {
	RecipientEmail string            `json:"recipient_email"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	JobID          int               `json:"job_id"`
	Sound          string            `json:"sound"`
	Data           map[string]string `json:"data,omitempty"`
	SendAfter      *time.Time        `json:"send_after,omitempty"`
}

type NotifyToken struct {
	UserID int    `json:"user_id"`
	Token  string `json:"token"`
}
