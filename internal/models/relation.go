package models

import "time"

// TranslatorJobRelation links a translator to a job. Reassignment cancels the
// old row and inserts a new one, so the table is an append-only audit trail.
// At most one row per job may have both CancelAt and CompletedAt unset.
type TranslatorJobRelation struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	JobID       int        `json:"job_id"`
	CancelAt    *time.Time `json:"cancel_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *int       `json:"completed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	TranslatorName  string `json:"translator_name,omitempty"`
	TranslatorEmail string `json:"translator_email,omitempty"`
}
