package model

import "time"

// SessionMeta identifies an open questionnaire session; cached so a session
// can be restored from the backend after a restart.
type SessionMeta struct {
	ID           string    `json:"id"`
	Usuario      int       `json:"usuario"`
	Cuestionario int       `json:"cuestionario"`
	OpenedBy     string    `json:"openedBy"`
	ReadOnly     bool      `json:"readOnly"`
	CreatedAt    time.Time `json:"createdAt"`
}
