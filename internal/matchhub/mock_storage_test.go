package matchhub_test

import (
	"time"

	"vibelink/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) EnsureUser(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByID(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) SaveSession(session *models.CallSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockStorage) UpdateSessionState(sessionID, state string) error {
	args := m.Called(sessionID, state)
	return args.Error(0)
}

func (m *MockStorage) CloseSession(sessionID, state, reason string) error {
	args := m.Called(sessionID, state, reason)
	return args.Error(0)
}

func (m *MockStorage) GetSessionByID(sessionID string) (*models.CallSession, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CallSession), args.Error(1)
}

func (m *MockStorage) GetActiveSessionIDs() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) GetActiveSessionForUser(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Debit(userID string, amount int, kind string) error {
	args := m.Called(userID, amount, kind)
	return args.Error(0)
}

func (m *MockStorage) Credit(userID string, amount int, kind string) error {
	args := m.Called(userID, amount, kind)
	return args.Error(0)
}

func (m *MockStorage) RecordPurchase(txn *models.CoinTransaction) (bool, error) {
	args := m.Called(txn)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AdjustBalance(userID string, delta int) error {
	args := m.Called(userID, delta)
	return args.Error(0)
}

func (m *MockStorage) ExtendPremium(userID string, period time.Duration) error {
	args := m.Called(userID, period)
	return args.Error(0)
}

func (m *MockStorage) SaveReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) UpdateReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) GetReportByID(id uint) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	args := m.Called(userID, since)
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) UpdateUserReputation(userID string, change int) error {
	args := m.Called(userID, change)
	return args.Error(0)
}

func (m *MockStorage) GetLastBanDate(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) IsUserBanned(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SetBanFlag(userID string, d time.Duration) error {
	args := m.Called(userID, d)
	return args.Error(0)
}

func (m *MockStorage) ClearBanFlag(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(channel string, ev models.Event) error {
	args := m.Called(channel, ev)
	return args.Error(0)
}

func (m *MockStorage) AddToWaitingPool(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveFromWaitingPool(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockStorage) GetWaitingPool() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}
