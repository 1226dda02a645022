package models

import "gorm.io/gorm"

// Report severities, weighted by the moderation service.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityCritical = "Critical"
)

// Report is filed by one call participant against the other.
type Report struct {
	gorm.Model

	ReporterID     string `gorm:"type:text;not null;index"`
	ReportedUserID string `gorm:"type:text;not null;index"`
	SessionID      string `gorm:"type:text;index"`
	Reason         string `gorm:"type:text"`
	Severity       string `gorm:"type:text;not null"`
	Status         string `gorm:"type:text"` // "new", "confirmed", "dismissed"
}
