package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set.
const UpdateGoldenEnv = "TASKER_UPDATE_GOLDEN"

// Golden compares command output against testdata/<name>.golden.
func Golden(t testing.TB, name string, got string) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv(UpdateGoldenEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(got), 0644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "golden file %s (set %s=1 to create it)", path, UpdateGoldenEnv)
	assert.Equal(t, string(want), got, "output differs from %s", path)
}
