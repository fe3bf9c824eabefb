package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }

func TestDefault(t *testing.T) {
	s := Default()
	assert.True(t, s.Locked)
	assert.Equal(t, 3, s.NumberOfDeaths)
	assert.Equal(t, 10*time.Second, s.MaxAge())
	assert.NoError(t, s.Validate())
}

func TestValidate_Range(t *testing.T) {
	assert.NoError(t, Settings{NumberOfDeaths: 0}.Validate())
	assert.NoError(t, Settings{NumberOfDeaths: 25}.Validate())
	assert.ErrorIs(t, Settings{NumberOfDeaths: 26}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Settings{NumberOfDeaths: -1}.Validate(), ErrInvalid)
}

func TestValidate_TimerFitsDuration(t *testing.T) {
	assert.NoError(t, Settings{TimerForDeaths: MaxTimerForDeaths}.Validate())
	assert.ErrorIs(t, Settings{TimerForDeaths: MaxTimerForDeaths + 1}.Validate(), ErrInvalid)
	assert.ErrorIs(t, Settings{TimerForDeaths: 18446744074}.Validate(), ErrInvalid)
}

func TestMaxAge_SaturatesLongTimers(t *testing.T) {
	assert.Equal(t, time.Duration(MaxTimerForDeaths)*time.Second, Settings{TimerForDeaths: MaxTimerForDeaths}.MaxAge())

	// 584 years would wrap to a fraction of a second
	age := Settings{TimerForDeaths: 18446744074}.MaxAge()
	assert.Greater(t, age, 100*365*24*time.Hour)
}

func TestManager_RejectsOversizedTimer(t *testing.T) {
	m := NewManager(Settings{NumberOfDeaths: 3, TimerForDeaths: 10})

	_, err := m.SetLocal(Update{TimerForDeaths: uintPtr(18446744074)}, false)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 10*time.Second, m.Effective().MaxAge())
}

func TestManager_ListenersSeeSnapshotOfRegistrations(t *testing.T) {
	m := NewManager(Settings{NumberOfDeaths: 3})
	var first, second int
	m.OnChange(func(Settings) {
		first++
		m.OnChange(func(Settings) { second++ })
	})

	_, err := m.SetLocal(Update{NumberOfDeaths: intPtr(4)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)

	m.ApplySynced(Settings{Locked: true, NumberOfDeaths: 5})
	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(Settings{Locked: false, NumberOfDeaths: 7, TimerForDeaths: 0})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Settings{NumberOfDeaths: 7}, got)

	_, err = Decode([]byte(`{"number_of_deaths": 99}`))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestManager_LockedRejectsLocalChange(t *testing.T) {
	m := NewManager(Default())

	_, err := m.SetLocal(Update{NumberOfDeaths: intPtr(5)}, false)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, 3, m.Effective().NumberOfDeaths)

	got, err := m.SetLocal(Update{NumberOfDeaths: intPtr(5)}, true)
	require.NoError(t, err)
	assert.Equal(t, 5, got.NumberOfDeaths)
}

func TestManager_UnlockedOverrideAndRelock(t *testing.T) {
	m := NewManager(Settings{Locked: false, NumberOfDeaths: 3, TimerForDeaths: 10})

	var seen []Settings
	m.OnChange(func(s Settings) { seen = append(seen, s) })

	got, err := m.SetLocal(Update{TimerForDeaths: uintPtr(0)}, false)
	require.NoError(t, err)
	assert.Equal(t, uint(0), got.TimerForDeaths)

	// a synced change keeps the override while unlocked
	m.ApplySynced(Settings{Locked: false, NumberOfDeaths: 4, TimerForDeaths: 10})
	assert.Equal(t, Settings{NumberOfDeaths: 4, TimerForDeaths: 0}, m.Effective())

	// locking drops it
	m.ApplySynced(Settings{Locked: true, NumberOfDeaths: 4, TimerForDeaths: 10})
	assert.Equal(t, Settings{Locked: true, NumberOfDeaths: 4, TimerForDeaths: 10}, m.Effective())

	require.Len(t, seen, 3)
	assert.Equal(t, m.Effective(), seen[2])
}

func TestManager_InvalidLocalChangeIsRolledBack(t *testing.T) {
	m := NewManager(Settings{NumberOfDeaths: 3})

	_, err := m.SetLocal(Update{NumberOfDeaths: intPtr(30)}, false)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 3, m.Effective().NumberOfDeaths)
}

func TestManager_NoNotificationWithoutChange(t *testing.T) {
	m := NewManager(Default())
	calls := 0
	m.OnChange(func(Settings) { calls++ })

	m.ApplySynced(Default())
	assert.Equal(t, 0, calls)
}
