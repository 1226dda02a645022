package matchhub_test

import (
	"testing"
	"time"

	"vibelink/backend/internal/billing"
	"vibelink/backend/internal/localization"
	"vibelink/backend/internal/matchhub"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/presence"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newLenientStorage returns a MockStorage that tolerates the bookkeeping
// calls every scenario makes (session rows, waiting pool mirror). Tests
// that care about a specific call still assert on it explicitly.
func newLenientStorage() *MockStorage {
	s := new(MockStorage)
	s.On("SaveSession", mock.Anything).Return(nil).Maybe()
	s.On("UpdateSessionState", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("CloseSession", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("AddToWaitingPool", mock.Anything).Return(nil).Maybe()
	s.On("RemoveFromWaitingPool", mock.Anything).Return(nil).Maybe()
	s.On("GetActiveSessionForUser", mock.Anything).Return("", nil).Maybe()
	return s
}

type testCore struct {
	t           *testing.T
	hub         *matchhub.Manager
	registry    *presence.Registry
	matcher     *matchhub.Matcher
	coordinator *matchhub.Coordinator
	storage     *MockStorage
}

type coreConfig struct {
	sweep             time.Duration
	matchTimeout      time.Duration
	connectTimeout    time.Duration
	genderFilterPrice int
}

func defaultCoreConfig() coreConfig {
	return coreConfig{
		sweep:          20 * time.Millisecond,
		matchTimeout:   time.Second,
		connectTimeout: time.Minute,
	}
}

// createTestCore wires a full matching core (hub + coordinator +
// matcher) over a mock storage and starts its goroutines.
func createTestCore(t *testing.T, cfg coreConfig, storageMock *MockStorage) *testCore {
	registry := presence.NewRegistry(time.Minute)
	loc, err := localization.NewLocalizer("")
	require.NoError(t, err)

	billingSvc := billing.NewService(storageMock, cfg.genderFilterPrice, time.Hour)
	hub := matchhub.NewManager(storageMock, registry, billingSvc, loc)
	coordinator := matchhub.NewCoordinator(hub, storageMock, registry, cfg.connectTimeout)
	matcher := matchhub.NewMatcher(registry, coordinator, storageMock, cfg.sweep, cfg.matchTimeout)
	hub.AttachServices(matcher, coordinator)

	go hub.Run()
	go coordinator.Run()
	go matcher.Run()

	return &testCore{
		t:           t,
		hub:         hub,
		registry:    registry,
		matcher:     matcher,
		coordinator: coordinator,
		storage:     storageMock,
	}
}

func inbound(c matchhub.Client, ev models.Event) matchhub.Inbound {
	return matchhub.Inbound{Client: c, Event: ev}
}

// connect joins a user to presence and registers a mock client so the
// hub can deliver events to them.
func (tc *testCore) connect(userID, gender string, premium bool) *MockClient {
	tc.t.Helper()

	client := newMockClient(userID)
	require.NoError(tc.t, tc.registry.Join(presence.Entry{
		UserID:    userID,
		Gender:    gender,
		IsPremium: premium,
	}))
	tc.hub.RegisterCh <- client
	// Give the hub loop a beat to pick the registration up.
	time.Sleep(20 * time.Millisecond)
	return client
}
