package presence_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"vibelink/backend/internal/errs"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryJoinAndGet(t *testing.T) {
	reg := presence.NewRegistry(time.Minute)

	err := reg.Join(presence.Entry{
		UserID:    "user-1",
		Gender:    models.GenderFemale,
		IsPremium: true,
		// Status set by the caller is ignored; everyone joins idle.
		Status: presence.StatusInCall,
	})
	require.NoError(t, err)

	entry, ok := reg.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, models.GenderFemale, entry.Gender)
	assert.True(t, entry.IsPremium)
	assert.Equal(t, presence.StatusIdle, entry.Status)
	assert.False(t, entry.LastActive.IsZero())

	_, ok = reg.Get("nobody")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateJoin(t *testing.T) {
	reg := presence.NewRegistry(time.Minute)

	require.NoError(t, reg.Join(presence.Entry{UserID: "user-1", Gender: models.GenderMale}))
	err := reg.Join(presence.Entry{UserID: "user-1", Gender: models.GenderMale})
	assert.ErrorIs(t, err, errs.ErrDuplicateUser)

	// After leaving, the ID can be reused.
	reg.Leave("user-1")
	assert.NoError(t, reg.Join(presence.Entry{UserID: "user-1", Gender: models.GenderMale}))
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	reg := presence.NewRegistry(time.Minute)

	require.NoError(t, reg.Join(presence.Entry{UserID: "user-1"}))
	reg.Leave("user-1")
	reg.Leave("user-1")
	reg.Leave("never-joined")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryStatusAndPreference(t *testing.T) {
	reg := presence.NewRegistry(time.Minute)
	require.NoError(t, reg.Join(presence.Entry{UserID: "user-1", Gender: models.GenderMale}))

	assert.True(t, reg.SetStatus("user-1", presence.StatusWaiting))
	assert.True(t, reg.UpdatePreference("user-1", models.PrefWomen))
	assert.False(t, reg.SetStatus("nobody", presence.StatusWaiting))
	assert.False(t, reg.UpdatePreference("nobody", models.PrefWomen))

	entry, ok := reg.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, presence.StatusWaiting, entry.Status)
	assert.Equal(t, models.PrefWomen, entry.PreferredGender)
}

func TestRegistryListWaiting(t *testing.T) {
	reg := presence.NewRegistry(time.Minute)
	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Join(presence.Entry{UserID: fmt.Sprintf("user-%d", i)}))
	}
	reg.SetStatus("user-0", presence.StatusWaiting)
	reg.SetStatus("user-1", presence.StatusInCall)

	waiting := reg.ListWaiting()
	require.Len(t, waiting, 1)
	assert.Equal(t, "user-0", waiting[0].UserID)
}

func TestRegistryEvictsStaleEntries(t *testing.T) {
	reg := presence.NewRegistry(50 * time.Millisecond)

	require.NoError(t, reg.Join(presence.Entry{UserID: "fresh"}))
	require.NoError(t, reg.Join(presence.Entry{UserID: "stale"}))
	reg.SetStatus("stale", presence.StatusWaiting)

	// Keep one side alive past the staleness window.
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		assert.True(t, reg.Heartbeat("fresh"))
	}

	assert.Empty(t, reg.ListWaiting())
	_, ok := reg.Get("stale")
	assert.False(t, ok)
	_, ok = reg.Get("fresh")
	assert.True(t, ok)

	// A heartbeat cannot resurrect an evicted user.
	assert.False(t, reg.Heartbeat("stale"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := presence.NewRegistry(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			require.NoError(t, reg.Join(presence.Entry{UserID: id}))
			reg.SetStatus(id, presence.StatusWaiting)
			reg.Heartbeat(id)
			if i%2 == 0 {
				reg.Leave(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, reg.Len())
	assert.Len(t, reg.ListWaiting(), 25)
}
