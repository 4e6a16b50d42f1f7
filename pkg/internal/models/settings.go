package models

const (
	DigestFrequencyDaily  = "daily"
	DigestFrequencyWeekly = "weekly"
)

// Settings is a single-row table; read through services.GetSettings which
// creates the row with defaults when it is missing.
type Settings struct {
	BaseModel

	DigestFrequency string `json:"digest_frequency" gorm:"default:daily"`
	InstantAlerts   bool   `json:"instant_alerts"`
}
