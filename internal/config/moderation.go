package config

import "time"

const (
	// Reputation
	InitialReputation    = 1000
	MaxReputation        = 1000
	MinReputation        = 0
	ConfirmedReportBonus = 50

	// Coins credited to the reporter when a moderator confirms their
	// report.
	ConfirmedReportCoinReward = 10

	// Ban
	BanThresholdReputation = 500
	BanThresholdFrequency  = 5
	BanFrequencyWindow     = 24 * time.Hour
	BanLevel1Duration      = 30 * time.Minute
	BanLevel2Duration      = 6 * time.Hour
	BanLevel3Duration      = 24 * time.Hour
)

// ReportWeights maps report severity to the reputation penalty applied
// to the reported user.
var ReportWeights = map[string]int{
	"Low":      5,
	"Medium":   50,
	"Critical": 250,
}
