package models

import "time"

// Job type values, derived once from the customer's consumer type at creation.
const (
	JobTypePaid   = "paid"
	JobTypeRWS    = "rws"
	JobTypeUnpaid = "unpaid"
)

const (
	YesFlag = "yes"
	NoFlag  = "no"
)

type Job struct {
	ID                   int        `json:"id"`
	UserID               int        `json:"user_id"`
	FromLanguageID       int        `json:"from_language_id"`
	Due                  time.Time  `json:"due"`
	Duration             int        `json:"duration"`
	Immediate            string     `json:"immediate"`
	Status               string     `json:"status"`
	Gender               *string    `json:"gender,omitempty"`
	Certified            *string    `json:"certified,omitempty"`
	JobType              string     `json:"job_type"`
	CustomerPhoneType    string     `json:"customer_phone_type"`
	CustomerPhysicalType string     `json:"customer_physical_type"`
	Town                 string     `json:"town"`
	CustomerEmail        string     `json:"customer_email,omitempty"`
	Reference            string     `json:"reference,omitempty"`
	AdminComments        string     `json:"admin_comments,omitempty"`
	Flagged              string     `json:"flagged"`
	SessionTime          string     `json:"session_time,omitempty"`
	ByAdmin              string     `json:"by_admin"`
	ManuallyHandled      string     `json:"manually_handled"`
	SpecificJob          *int       `json:"specific_job,omitempty"`
	EmailSent            bool       `json:"emailsent"`
	CreatedAt            time.Time  `json:"created_at"`
	WillExpireAt         time.Time  `json:"will_expire_at"`
	EndAt                *time.Time `json:"end_at,omitempty"`
	WithdrawAt           *time.Time `json:"withdraw_at,omitempty"`

	LanguageName string                 `json:"language,omitempty"`
	Translator   *TranslatorJobRelation `json:"translator_job_rel,omitempty"`
	Distance     *Distance              `json:"distance,omitempty"`
}

type CreateJobRequest struct {
	UserID               int    `json:"user_id"`
	FromLanguageID       int    `json:"from_language_id"`
	Due                  string `json:"due"`
	Duration             int    `json:"duration"`
	Immediate            string `json:"immediate"`
	Gender               string `json:"gender"`
	Certified            string `json:"certified"`
	CustomerPhoneType    string `json:"customer_phone_type"`
	CustomerPhysicalType string `json:"customer_physical_type"`
	Town                 string `json:"town"`
	Reference            string `json:"reference"`
	ByAdmin              string `json:"by_admin"`
}

// JobUpdateRequest carries the admin-side PUT payload. Due stays a string so
// that a change is detected by raw comparison against the stored value.
type JobUpdateRequest struct {
	Due            string `json:"due"`
	FromLanguageID int    `json:"from_language_id"`
	TranslatorID   int    `json:"translator"`
	Status         string `json:"status"`
	AdminComments  string `json:"admin_comments"`
	Reference      string `json:"reference"`
	SessionTime    string `json:"session_time"`
}

type JobFilter struct {
	Statuses        []string
	LanguageIDs     []int
	CustomerEmail   string
	TranslatorEmail string
	From            *time.Time
	To              *time.Time
	ExpireFrom      *time.Time
	ExpireTo        *time.Time
	Limit           int
	Offset          int
}

// JobChangeLog is the structured audit entry written on every admin update.
type JobChangeLog struct {
	JobID     int       `json:"job_id"`
	ActorID   int       `json:"actor_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}
