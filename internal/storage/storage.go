package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"vibelink/backend/internal/config"
	"vibelink/backend/internal/errs"
	"vibelink/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the persistence surface the matching core depends on.
// PostgreSQL (через GORM) є єдиним джерелом істини; Redis тримає лише
// швидкий кеш (бани, дзеркало черги пошуку) та Pub/Sub.
type Storage interface {
	EnsureUser(userID string) (*models.User, error)
	GetUserByID(userID string) (*models.User, error)
	UpdateUser(user *models.User) error

	SaveSession(session *models.CallSession) error
	UpdateSessionState(sessionID, state string) error
	CloseSession(sessionID, state, reason string) error
	GetSessionByID(sessionID string) (*models.CallSession, error)
	GetActiveSessionIDs() ([]string, error)
	GetActiveSessionForUser(userID string) (string, error)

	Debit(userID string, amount int, kind string) error
	Credit(userID string, amount int, kind string) error
	RecordPurchase(txn *models.CoinTransaction) (bool, error)
	AdjustBalance(userID string, delta int) error
	ExtendPremium(userID string, period time.Duration) error

	SaveReport(report *models.Report) error
	UpdateReport(report *models.Report) error
	GetReportByID(id uint) (*models.Report, error)
	GetReportsForUser(userID string, since time.Time) ([]models.Report, error)
	UpdateUserReputation(userID string, change int) error
	GetLastBanDate(userID string) (int64, error)

	IsUserBanned(userID string) (bool, error)
	SetBanFlag(userID string, d time.Duration) error
	ClearBanFlag(userID string) error

	PublishEvent(channel string, ev models.Event) error

	AddToWaitingPool(userID string) error
	RemoveFromWaitingPool(userID string) error
	GetWaitingPool() ([]string, error)
}

// Service implements Storage over GORM + Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// EnsureUser повертає користувача, створюючи запис при першому контакті.
func (s *Service) EnsureUser(userID string) (*models.User, error) {
	var user models.User
	defaults := models.User{
		ID:              userID,
		ReputationScore: config.InitialReputation,
	}

	result := s.DB.Where("id = ?", userID).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Printf("ERROR: Failed to ensure user %s: %v", userID, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("INFO: New user %s saved to database.", userID)
	}
	return &user, nil
}

func (s *Service) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// SaveSession зберігає сесію в PostgreSQL
func (s *Service) SaveSession(session *models.CallSession) error {
	return s.DB.Save(session).Error
}

func (s *Service) UpdateSessionState(sessionID, state string) error {
	return s.DB.Model(&models.CallSession{}).
		Where("session_id = ?", sessionID).
		Update("state", state).Error
}

// CloseSession переводить сесію у термінальний стан та фіксує причину.
func (s *Service) CloseSession(sessionID, state, reason string) error {
	return s.DB.Model(&models.CallSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"state":      state,
			"end_reason": reason,
			"ended_at":   gorm.Expr("NOW()"),
		}).Error
}

func (s *Service) GetSessionByID(sessionID string) (*models.CallSession, error) {
	var session models.CallSession
	err := s.DB.Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrUnknownSession
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session %s: %v", sessionID, err)
		return nil, err
	}
	return &session, nil
}

// GetActiveSessionIDs повертає всі сесії, які ще не завершені.
func (s *Service) GetActiveSessionIDs() ([]string, error) {
	var ids []string
	if err := s.DB.Model(&models.CallSession{}).
		Where("state IN ?", []string{models.SessionStateSignaling, models.SessionStateConnected}).
		Pluck("session_id", &ids).Error; err != nil {
		log.Printf("ERROR: Failed to retrieve active session IDs: %v", err)
		return nil, err
	}
	return ids, nil
}

// GetActiveSessionForUser знаходить активну сесію, в якій бере участь користувач.
func (s *Service) GetActiveSessionForUser(userID string) (string, error) {
	var session models.CallSession
	err := s.DB.Where("state IN ?", []string{models.SessionStateSignaling, models.SessionStateConnected}).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find active session for user %s: %v", userID, err)
		return "", err
	}
	return session.SessionID, nil
}

// Debit atomically takes amount coins from the user's balance and
// appends a ledger entry. Returns errs.ErrInsufficientFunds when the
// balance does not cover the amount; nothing is written in that case.
func (s *Service) Debit(userID string, amount int, kind string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		if user.CoinBalance < amount {
			return errs.ErrInsufficientFunds
		}
		user.CoinBalance -= amount
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.CoinTransaction{
			UserID: userID,
			Amount: -amount,
			Kind:   kind,
		}).Error
	})
}

// Credit atomically adds amount coins and appends a ledger entry.
func (s *Service) Credit(userID string, amount int, kind string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		user.CoinBalance += amount
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.CoinTransaction{
			UserID: userID,
			Amount: amount,
			Kind:   kind,
		}).Error
	})
}

// RecordPurchase inserts a gateway purchase into the ledger. Returns
// false when the order ID is already recorded (replayed webhook);
// the unique index on order_id carries the idempotency.
func (s *Service) RecordPurchase(txn *models.CoinTransaction) (bool, error) {
	result := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(txn)
	if result.Error != nil {
		log.Printf("ERROR: Failed to record purchase %v: %v", txn.OrderID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AdjustBalance applies a balance delta whose ledger entry already
// exists (purchase fulfilment goes through RecordPurchase first).
func (s *Service) AdjustBalance(userID string, delta int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("coin_balance", gorm.Expr("coin_balance + ?", delta)).Error
}

// ExtendPremium pushes the user's premium expiry forward by period,
// starting from now when the previous subscription already lapsed.
func (s *Service) ExtendPremium(userID string, period time.Duration) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		base := time.Now()
		if user.PremiumUntil.After(base) {
			base = user.PremiumUntil
		}
		user.PremiumUntil = base.Add(period)
		return tx.Save(&user).Error
	})
}

func (s *Service) SaveReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = "new"
	}
	if err := s.DB.Create(report).Error; err != nil {
		log.Printf("ERROR: Failed to save report for session %s: %v", report.SessionID, err)
		return err
	}
	return nil
}

func (s *Service) UpdateReport(report *models.Report) error {
	return s.DB.Save(report).Error
}

func (s *Service) GetReportByID(id uint) (*models.Report, error) {
	var report models.Report
	err := s.DB.First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.Where("reported_user_id = ? AND created_at > ?", userID, since).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// UpdateUserReputation applies a reputation delta, clamped to the
// [MinReputation, MaxReputation] range so confirmed-report bonuses
// cannot inflate a score past the ceiling.
func (s *Service) UpdateUserReputation(userID string, change int) error {
	return s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("reputation_score", gorm.Expr(
			"LEAST(?, GREATEST(?, reputation_score + ?))",
			config.MaxReputation, config.MinReputation, change,
		)).Error
}

func (s *Service) GetLastBanDate(userID string) (int64, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, err
	}
	return user.LastBanDate, nil
}

// IsUserBanned перевіряє статус бану в Redis (швидка перевірка)
func (s *Service) IsUserBanned(userID string) (bool, error) {
	key := "ban:" + userID
	status, err := s.Redis.Get(s.Ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

func (s *Service) SetBanFlag(userID string, d time.Duration) error {
	return s.Redis.Set(s.Ctx, "ban:"+userID, "active", d).Err()
}

func (s *Service) ClearBanFlag(userID string) error {
	return s.Redis.Del(s.Ctx, "ban:"+userID).Err()
}

// PublishEvent публікує подію в Redis Pub/Sub
func (s *Service) PublishEvent(channel string, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, channel, string(data)).Err()
}

// SubscribeSessions підписується на всі міжсерверні сесійні канали.
func (s *Service) SubscribeSessions() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, "session:*")
}

// AddToWaitingPool дзеркалить чергу пошуку в Redis (для моніторингу та
// відновлення після рестарту).
func (s *Service) AddToWaitingPool(userID string) error {
	return s.Redis.SAdd(s.Ctx, "waiting_pool", userID).Err()
}

func (s *Service) RemoveFromWaitingPool(userID string) error {
	return s.Redis.SRem(s.Ctx, "waiting_pool", userID).Err()
}

func (s *Service) GetWaitingPool() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, "waiting_pool").Result()
}
