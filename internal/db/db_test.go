package db

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/robot.sensors/internal/monitoring"
	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleTick(tick uint64) (sensors.RawReading, sensors.Snapshot) {
	raw := sensors.RawReading{
		Tick:           tick,
		Mode:           sensors.ModeSearchingForBeacon,
		Obstacles:      sensors.Obstacles{Front: 40, Left: 55.5, Right: 70},
		Ground:         1,
		Compass:        -1.25,
		Pose:           sensors.Pose{X: 0.1 * float64(tick), Y: 0.2, Theta: 0.3},
		BatteryVoltage: 84,
	}
	filt := sensors.Snapshot{
		Tick:             tick,
		Obstacles:        sensors.Obstacles{Front: 41, Left: 56, Right: 69},
		Ground:           0.6,
		Compass:          -1.2,
		Pose:             sensors.Pose{X: 0.1 * float64(tick), Y: 0.19, Theta: 0.31},
		BatteryVoltage:   83.9,
		Beacon:           sensors.Beacon{Visible: true, RelativeDirection: -math.Pi / 2},
		AtBeaconArea:     true,
		DirectionToStart: math.Pi / 4,
	}
	return raw, filt
}

func TestNewDB_AppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	for _, table := range []string{"sessions", "ticks", "breadcrumbs", "corrections"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, table)
	}

	// a second run is a no-op
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDownAndTo(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='corrections'`).Scan(&count))
	assert.Equal(t, 0, count)

	require.NoError(t, db.MigrateTo(2))
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestSessions(t *testing.T) {
	db := newTestDB(t)
	start := time.Unix(1700000000, 0)

	require.NoError(t, db.StartSession("older", start, 0.5))
	require.NoError(t, db.StartSession("newer", start.Add(time.Minute), -0.25))
	require.NoError(t, db.EndSession("older", start.Add(30*time.Second)))

	raw, filt := sampleTick(1)
	require.NoError(t, db.RecordTick("newer", raw, filt, start.Add(time.Minute)))

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "newer", sessions[0].ID)
	assert.Nil(t, sessions[0].EndedAt)
	assert.Equal(t, 1, sessions[0].Ticks)
	assert.Equal(t, -0.25, sessions[0].CompassBaseline)

	assert.Equal(t, "older", sessions[1].ID)
	require.NotNil(t, sessions[1].EndedAt)
	assert.True(t, sessions[1].EndedAt.Equal(start.Add(30*time.Second)))
	assert.True(t, sessions[1].StartedAt.Equal(start))
}

func TestEndSession_Unknown(t *testing.T) {
	db := newTestDB(t)
	err := db.EndSession("missing", time.Now())
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestStartSession_Duplicate(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.StartSession("s", time.Now(), 0))
	assert.Error(t, db.StartSession("s", time.Now(), 0))
}

func TestRecordTick_RequiresSession(t *testing.T) {
	db := newTestDB(t)
	raw, filt := sampleTick(1)
	assert.Error(t, db.RecordTick("missing", raw, filt, time.Now()))
}

func TestRecentTicks(t *testing.T) {
	db := newTestDB(t)
	at := time.Unix(1700000000, 123)
	require.NoError(t, db.StartSession("s", at, 0))

	for tick := uint64(1); tick <= 5; tick++ {
		raw, filt := sampleTick(tick)
		require.NoError(t, db.RecordTick("s", raw, filt, at))
	}

	got, err := db.RecentTicks("s", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].Raw.Tick)
	assert.Equal(t, uint64(5), got[2].Raw.Tick)

	raw, filt := sampleTick(5)
	raw.Beacon = filt.Beacon
	raw.AtBeaconArea = filt.AtBeaconArea
	raw.DirectionToStart = filt.DirectionToStart
	if diff := cmp.Diff(raw, got[2].Raw); diff != "" {
		t.Errorf("raw mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(filt, got[2].Filtered); diff != "" {
		t.Errorf("filtered mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got[2].RecordedAt.Equal(at))
	assert.Equal(t, "s", got[2].SessionID)

	none, err := db.RecentTicks("s", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordTick_ReplacesSameTick(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.StartSession("s", time.Now(), 0))

	raw, filt := sampleTick(7)
	require.NoError(t, db.RecordTick("s", raw, filt, time.Now()))
	filt.Obstacles.Front = 99
	require.NoError(t, db.RecordTick("s", raw, filt, time.Now()))

	got, err := db.RecentTicks("s", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 99.0, got[0].Filtered.Obstacles.Front)
}

func TestBreadcrumbs(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.StartSession("s", time.Now(), 0))

	first := []sensors.Pose{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1, Theta: math.Pi / 2}}
	require.NoError(t, db.ReplaceBreadcrumbs("s", first))

	got, err := db.Breadcrumbs("s")
	require.NoError(t, err)
	if diff := cmp.Diff(first, got); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}

	second := []sensors.Pose{{X: 2, Y: 2}}
	require.NoError(t, db.ReplaceBreadcrumbs("s", second))
	got, err = db.Breadcrumbs("s")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	other, err := db.Breadcrumbs("nobody")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCorrections(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.StartSession("s", time.Now(), 0))

	want := []sensors.Correction{
		{Tick: 3, Delta: sensors.PoseDelta{DX: 1}, Offset: sensors.PoseDelta{DX: 1}, Source: sensors.CorrectionSourceManual},
		{Tick: 40, Delta: sensors.PoseDelta{DY: -0.5, DTheta: 0.1}, Offset: sensors.PoseDelta{DX: 1, DY: -0.5, DTheta: 0.1}, Source: sensors.CorrectionSourcePolicy},
	}
	for _, c := range want {
		require.NoError(t, db.RecordCorrection("s", c, time.Now()))
	}

	got, err := db.Corrections("s")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("corrections mismatch (-want +got):\n%s", diff)
	}
}
