package moderation_test

import (
	"testing"
	"time"

	"vibelink/backend/internal/config"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/moderation"
	"vibelink/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModStorage implements the moderation slice of storage.Storage in
// memory; the embedded interface panics on anything else.
type fakeModStorage struct {
	storage.Storage

	users    map[string]*models.User
	reports  []models.Report
	banFlags map[string]time.Duration
	credits  map[string]int
	nextID   uint
}

func newFakeModStorage() *fakeModStorage {
	return &fakeModStorage{
		users:    make(map[string]*models.User),
		banFlags: make(map[string]time.Duration),
		credits:  make(map[string]int),
	}
}

func (f *fakeModStorage) addUser(id string, reputation int) *models.User {
	u := &models.User{ID: id, ReputationScore: reputation}
	f.users[id] = u
	return u
}

func (f *fakeModStorage) SaveReport(report *models.Report) error {
	f.nextID++
	report.ID = f.nextID
	report.CreatedAt = time.Now()
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeModStorage) UpdateReport(report *models.Report) error {
	for i := range f.reports {
		if f.reports[i].ID == report.ID {
			f.reports[i] = *report
			return nil
		}
	}
	return nil
}

func (f *fakeModStorage) GetReportByID(id uint) (*models.Report, error) {
	for i := range f.reports {
		if f.reports[i].ID == id {
			r := f.reports[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeModStorage) GetReportsForUser(userID string, since time.Time) ([]models.Report, error) {
	var out []models.Report
	for _, r := range f.reports {
		if r.ReportedUserID == userID && r.CreatedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeModStorage) GetUserByID(userID string) (*models.User, error) {
	return f.users[userID], nil
}

func (f *fakeModStorage) UpdateUser(user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeModStorage) UpdateUserReputation(userID string, change int) error {
	if u, ok := f.users[userID]; ok {
		u.ReputationScore += change
	}
	return nil
}

func (f *fakeModStorage) GetLastBanDate(userID string) (int64, error) {
	if u, ok := f.users[userID]; ok {
		return u.LastBanDate, nil
	}
	return 0, nil
}

func (f *fakeModStorage) SetBanFlag(userID string, d time.Duration) error {
	f.banFlags[userID] = d
	return nil
}

func (f *fakeModStorage) Credit(userID string, amount int, kind string) error {
	if kind == models.TxnReward {
		f.credits[userID] += amount
	}
	return nil
}

func report(reporter, reported, severity string) *models.Report {
	return &models.Report{
		ReporterID:     reporter,
		ReportedUserID: reported,
		SessionID:      "session-1",
		Reason:         "inappropriate behavior",
		Severity:       severity,
		Status:         "new",
	}
}

func TestHandleReportAppliesPenalty(t *testing.T) {
	store := newFakeModStorage()
	store.addUser("offender", config.InitialReputation)
	svc := moderation.NewService(store)

	require.NoError(t, svc.HandleReport(report("victim", "offender", models.SeverityMedium)))

	assert.Equal(t, config.InitialReputation-config.ReportWeights[models.SeverityMedium],
		store.users["offender"].ReputationScore)
	assert.False(t, store.users["offender"].IsBlocked)
	require.Len(t, store.reports, 1)
}

func TestHandleReportBansBelowReputationThreshold(t *testing.T) {
	store := newFakeModStorage()
	// One critical report below the threshold triggers the ban.
	store.addUser("offender", config.BanThresholdReputation+100)
	svc := moderation.NewService(store)

	require.NoError(t, svc.HandleReport(report("victim", "offender", models.SeverityCritical)))

	offender := store.users["offender"]
	assert.True(t, offender.IsBlocked)
	assert.Equal(t, 1, offender.BlockLevel)
	assert.Greater(t, offender.BlockEndTime, time.Now().Unix())
	assert.Equal(t, config.BanLevel1Duration, store.banFlags["offender"])
}

func TestHandleReportBansOnFrequency(t *testing.T) {
	store := newFakeModStorage()
	store.addUser("offender", config.InitialReputation)
	svc := moderation.NewService(store)

	// Low-severity reports barely touch reputation, but enough of them
	// inside the window trip the frequency ban.
	for i := 0; i <= config.BanThresholdFrequency; i++ {
		require.NoError(t, svc.HandleReport(report("victim", "offender", models.SeverityLow)))
	}

	offender := store.users["offender"]
	assert.True(t, offender.IsBlocked)
	assert.Greater(t, offender.ReputationScore, config.BanThresholdReputation,
		"frequency ban must fire before the reputation threshold")
}

func TestBanEscalationForRepeatOffenders(t *testing.T) {
	store := newFakeModStorage()
	offender := store.addUser("offender", 0)
	offender.LastBanDate = time.Now().Add(-24 * time.Hour).Unix()
	svc := moderation.NewService(store)

	require.NoError(t, svc.CheckForBan("offender"))
	assert.Equal(t, 2, offender.BlockLevel)
	assert.Equal(t, config.BanLevel2Duration, store.banFlags["offender"])

	// A ban older than a week but inside a month escalates to level 3.
	offender.IsBlocked = false
	offender.LastBanDate = time.Now().Add(-10 * 24 * time.Hour).Unix()
	require.NoError(t, svc.CheckForBan("offender"))
	assert.Equal(t, 3, offender.BlockLevel)
	assert.Equal(t, config.BanLevel3Duration, store.banFlags["offender"])
}

func TestConfirmReportRewardsReporter(t *testing.T) {
	store := newFakeModStorage()
	store.addUser("victim", 900)
	store.addUser("offender", config.InitialReputation)
	svc := moderation.NewService(store)

	require.NoError(t, svc.HandleReport(report("victim", "offender", models.SeverityLow)))
	reportID := store.reports[0].ID

	require.NoError(t, svc.ConfirmReport(reportID))
	assert.Equal(t, "confirmed", store.reports[0].Status)
	assert.Equal(t, 900+config.ConfirmedReportBonus, store.users["victim"].ReputationScore)
	assert.Equal(t, config.ConfirmedReportCoinReward, store.credits["victim"])
}

func TestCheckForBanUnknownUser(t *testing.T) {
	store := newFakeModStorage()
	svc := moderation.NewService(store)
	assert.NoError(t, svc.CheckForBan("nobody"))
}
