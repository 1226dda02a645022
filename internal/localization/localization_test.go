package localization_test

import (
	"os"
	"path/filepath"
	"testing"

	"vibelink/backend/internal/localization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinStrings(t *testing.T) {
	loc, err := localization.NewLocalizer("")
	require.NoError(t, err)

	assert.Equal(t, "Partner found! Say hi.", loc.Get("en", "match_found"))
	assert.Equal(t, "Співрозмовника знайдено! Привітайтеся.", loc.Get("uk", "match_found"))

	// Unknown language falls back to English, unknown key to itself.
	assert.Equal(t, "Partner found! Say hi.", loc.Get("de", "match_found"))
	assert.Equal(t, "no_such_key", loc.Get("en", "no_such_key"))
}

func TestOverridesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"),
		[]byte(`{"match_found": "Connected!", "greeting": "Welcome"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pl.json"),
		[]byte(`{"match_found": "Znaleziono rozmówcę!"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("ignored"), 0o644))

	loc, err := localization.NewLocalizer(dir)
	require.NoError(t, err)

	assert.Equal(t, "Connected!", loc.Get("en", "match_found"))
	assert.Equal(t, "Welcome", loc.Get("en", "greeting"))
	assert.Equal(t, "Znaleziono rozmówcę!", loc.Get("pl", "match_found"))
	// Untouched builtin keys survive the merge.
	assert.Equal(t, "Your partner left the call.", loc.Get("en", "partner_left"))
}

func TestBadLocalesDirectory(t *testing.T) {
	_, err := localization.NewLocalizer("/definitely/not/a/dir")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.json"), []byte("{broken"), 0o644))
	_, err = localization.NewLocalizer(dir)
	assert.Error(t, err)
}
