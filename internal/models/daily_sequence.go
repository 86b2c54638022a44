package models

// DailySequence backs the human-readable codes. Day is "YYYYMMDD" for daily
// counters and empty for global ones.
type DailySequence struct {
	Scope     string `gorm:"primaryKey;size:20"`
	Day       string `gorm:"primaryKey;size:8"`
	LastValue int    `gorm:"not null;default:0"`
}
