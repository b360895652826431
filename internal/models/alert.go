package models

import "time"

// Alert is raised by the alert engine. Only Acknowledged ever changes.
type Alert struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Message      string    `json:"message"`
	Severity     Severity  `json:"severity"`
	SuggestedFix string    `json:"suggested_fix"`
	CreatedAt    time.Time `json:"created_at"`
	Acknowledged bool      `json:"acknowledged"`
}
