package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFileBackend(t *testing.T) {
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "ocbseal.log")
	b, err := New(f, "DEBUG", false)
	require.NoError(err)

	l := b.GetLogger("engine")
	l.Debugf("sealed chunk %d", 7)
	l.Info("done")
	require.NoError(b.Close())

	out, err := os.ReadFile(f)
	require.NoError(err)
	require.Contains(string(out), "DEBU engine: sealed chunk 7")
	require.Contains(string(out), "INFO engine: done")
}

func TestLevelFiltering(t *testing.T) {
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "ocbseal.log")
	b, err := New(f, "warning", false)
	require.NoError(err)

	l := b.GetLogger("cli")
	l.Info("hidden")
	l.Warning("shown")
	require.NoError(b.Close())

	out, err := os.ReadFile(f)
	require.NoError(err)
	require.NotContains(string(out), "hidden")
	require.Contains(string(out), "shown")
}

func TestInvalidLevel(t *testing.T) {
	_, err := New("", "LOUD", false)
	require.Error(t, err)
}

func TestDisabled(t *testing.T) {
	require := require.New(t)

	b, err := New("", "DEBUG", true)
	require.NoError(err)
	b.GetLogger("quiet").Error("nothing")
	require.NoError(b.Close())
}
