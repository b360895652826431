package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nazar/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nazar.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testAlert(id string, createdAt time.Time) models.Alert {
	return models.Alert{
		ID:           id,
		Source:       models.SourceCPU,
		Message:      "CPU usage sustained above 85%",
		Severity:     models.SeverityCritical,
		SuggestedFix: "Close heavy applications.",
		CreatedAt:    createdAt,
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nazar.db")

	db, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, NewAlertLogRepository(db).Create(testAlert("a", time.Now())))
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	alerts, err := NewAlertLogRepository(db).Recent(10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestAlertLog_CreateAndRecent(t *testing.T) {
	repo := NewAlertLogRepository(openTestDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(testAlert("first", base)))
	require.NoError(t, repo.Create(testAlert("second", base.Add(time.Second))))
	noFix := testAlert("third", base.Add(2*time.Second))
	noFix.SuggestedFix = ""
	require.NoError(t, repo.Create(noFix))

	alerts, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "third", alerts[0].ID)
	assert.Equal(t, "second", alerts[1].ID)
	assert.Equal(t, "first", alerts[2].ID)

	got := alerts[2]
	assert.Equal(t, models.SourceCPU, got.Source)
	assert.Equal(t, models.SeverityCritical, got.Severity)
	assert.Equal(t, "Close heavy applications.", got.SuggestedFix)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.Empty(t, alerts[0].SuggestedFix)

	limited, err := repo.Recent(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAlertLog_DuplicateIDKeepsFirst(t *testing.T) {
	repo := NewAlertLogRepository(openTestDB(t))
	a := testAlert("dup", time.Now())
	require.NoError(t, repo.Create(a))

	a.Message = "changed"
	require.NoError(t, repo.Create(a))

	alerts, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "CPU usage sustained above 85%", alerts[0].Message)
}

func TestAlertLog_RecentEmpty(t *testing.T) {
	repo := NewAlertLogRepository(openTestDB(t))
	alerts, err := repo.Recent(10)
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestAlertLog_Acknowledge(t *testing.T) {
	repo := NewAlertLogRepository(openTestDB(t))
	require.NoError(t, repo.Create(testAlert("a", time.Now())))

	require.NoError(t, repo.Acknowledge("a"))
	require.NoError(t, repo.Acknowledge("unknown"))

	alerts, err := repo.Recent(1)
	require.NoError(t, err)
	assert.True(t, alerts[0].Acknowledged)
}

func TestAlertLog_DeleteOlderThan(t *testing.T) {
	repo := NewAlertLogRepository(openTestDB(t))
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Create(testAlert("old", now.AddDate(0, 0, -45))))
	require.NoError(t, repo.Create(testAlert("edge", now.AddDate(0, 0, -29))))
	require.NoError(t, repo.Create(testAlert("new", now.Add(-time.Hour))))

	deleted, err := repo.DeleteOlderThan(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	alerts, err := repo.Recent(10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "new", alerts[0].ID)
	assert.Equal(t, "edge", alerts[1].ID)
}
