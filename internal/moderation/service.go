// Package moderation provides the core logic for handling user reports,
// including reputation management and applying bans.
package moderation

import (
	"time"

	"vibelink/backend/internal/config"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/storage"
)

// Service handles the business logic for reports filed after calls.
type Service struct {
	Storage storage.Storage
}

// NewService creates a new moderation service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// HandleReport persists a new report, applies the reputation penalty
// for its severity and checks whether the reported user crossed a ban
// threshold.
func (s *Service) HandleReport(report *models.Report) error {
	if err := s.Storage.SaveReport(report); err != nil {
		return err
	}

	weight := config.ReportWeights[report.Severity]
	if err := s.Storage.UpdateUserReputation(report.ReportedUserID, -weight); err != nil {
		return err
	}

	return s.CheckForBan(report.ReportedUserID)
}

// CheckForBan checks if a user should be banned based on their
// reputation and recent report frequency.
func (s *Service) CheckForBan(userID string) error {
	user, err := s.Storage.GetUserByID(userID)
	if err != nil || user == nil {
		return err
	}

	// Threshold Ban
	if user.ReputationScore < config.BanThresholdReputation {
		return s.applyBan(user)
	}

	// Frequency Ban
	reports, err := s.Storage.GetReportsForUser(userID, time.Now().Add(-config.BanFrequencyWindow))
	if err != nil {
		return err
	}
	if len(reports) > config.BanThresholdFrequency {
		return s.applyBan(user)
	}

	return nil
}

// ConfirmReport marks a report confirmed and rewards the reporter with
// a reputation bonus and a coin bounty.
func (s *Service) ConfirmReport(reportID uint) error {
	report, err := s.Storage.GetReportByID(reportID)
	if err != nil || report == nil {
		return err
	}
	report.Status = "confirmed"
	if err := s.Storage.UpdateReport(report); err != nil {
		return err
	}
	if err := s.Storage.UpdateUserReputation(report.ReporterID, config.ConfirmedReportBonus); err != nil {
		return err
	}
	return s.Storage.Credit(report.ReporterID, config.ConfirmedReportCoinReward, models.TxnReward)
}

// applyBan escalates repeat offenders: a ban within a week of the last
// one jumps to level 2, within a month to level 3.
func (s *Service) applyBan(user *models.User) error {
	lastBanDate, err := s.Storage.GetLastBanDate(user.ID)
	if err != nil {
		return err
	}

	level := 1
	if lastBanDate > 0 {
		if time.Since(time.Unix(lastBanDate, 0)) < 7*24*time.Hour {
			level = 2
		} else if time.Since(time.Unix(lastBanDate, 0)) < 30*24*time.Hour {
			level = 3
		}
	}

	duration := getBanDuration(level)
	user.IsBlocked = true
	user.BlockEndTime = time.Now().Add(duration).Unix()
	user.BlockLevel = level
	user.LastBanDate = time.Now().Unix()
	if err := s.Storage.UpdateUser(user); err != nil {
		return err
	}

	// Швидкий прапорець у Redis, щоб hub відсікав забанених без запиту в БД.
	return s.Storage.SetBanFlag(user.ID, duration)
}

func getBanDuration(level int) time.Duration {
	switch level {
	case 1:
		return config.BanLevel1Duration
	case 2:
		return config.BanLevel2Duration
	default:
		return config.BanLevel3Duration
	}
}
