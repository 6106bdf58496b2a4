package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/browserscript/browserscript/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *BoltDB {
	t.Helper()
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScript_SaveGetDelete(t *testing.T) {
	db := newTestDB(t)

	script := &models.Script{
		ID:       "s1",
		Name:     "login",
		Format:   models.FormatJSON,
		Document: []byte(`[{"target": "browser", "action": "new_tab"}]`),
	}
	require.NoError(t, db.SaveScript(script))
	assert.False(t, script.CreatedAt.IsZero())

	got, err := db.GetScript("s1")
	require.NoError(t, err)
	assert.Equal(t, "login", got.Name)
	assert.Equal(t, script.Document, got.Document)

	require.NoError(t, db.DeleteScript("s1"))
	_, err = db.GetScript("s1")
	assert.Error(t, err)
}

func TestListScripts_NewestFirst(t *testing.T) {
	db := newTestDB(t)

	older := &models.Script{ID: "a", Name: "older", Format: models.FormatJSON}
	newer := &models.Script{ID: "b", Name: "newer", Format: models.FormatJSON}
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer.CreatedAt = time.Now()
	require.NoError(t, db.SaveScript(older))
	require.NoError(t, db.SaveScript(newer))

	scripts, err := db.ListScripts()
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "newer", scripts[0].Name)
	assert.Equal(t, "older", scripts[1].Name)
}

func TestExecutions_FilterAndOrder(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveExecution(&models.ScriptExecution{
		ID: "e1", ScriptID: "s1", Status: models.ExecutionSucceeded,
		StartedAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, db.SaveExecution(&models.ScriptExecution{
		ID: "e2", ScriptID: "s1", Status: models.ExecutionFailed, Error: "boom",
		StartedAt: time.Now(),
	}))
	require.NoError(t, db.SaveExecution(&models.ScriptExecution{
		ID: "e3", ScriptID: "s2", Status: models.ExecutionSucceeded,
		StartedAt: time.Now(),
	}))

	execs, err := db.ListExecutions("s1")
	require.NoError(t, err)
	require.Len(t, execs, 2)
	assert.Equal(t, "e2", execs[0].ID)
	assert.Equal(t, "e1", execs[1].ID)

	all, err := db.ListExecutions("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteScript_RemovesExecutions(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveScript(&models.Script{ID: "s1", Name: "x", Format: models.FormatJSON}))
	require.NoError(t, db.SaveExecution(&models.ScriptExecution{ID: "e1", ScriptID: "s1", StartedAt: time.Now()}))

	require.NoError(t, db.DeleteScript("s1"))

	execs, err := db.ListExecutions("s1")
	require.NoError(t, err)
	assert.Empty(t, execs)
}
