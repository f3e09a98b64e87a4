package logger

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRotatorRotatesBySize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.log")
	r := &Rotator{Filename: path, MaxSize: 10, MaxBackups: 2}
	defer r.Close()

	for _, line := range []string{"aaaaa\n", "bbbbb\n", "ccccc\n"} {
		n, err := r.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	assert.Equal(t, "ccccc\n", readFile(t, path))
	assert.Equal(t, "bbbbb\n", readFile(t, path+".1"))
	assert.Equal(t, "aaaaa\n", readFile(t, path+".2"))
}

func TestRotatorAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

	r := &Rotator{Filename: path, MaxSize: 1024, MaxBackups: 1}
	_, err := r.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.Equal(t, "old\nnew\n", readFile(t, path))
}

func TestSetup(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})
	path := filepath.Join(t.TempDir(), "trader.log")

	r := Setup(path, 1, 2, "debug")
	require.NotNil(t, r)
	defer r.Close()
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	log.WithField("symbol", "AAPL").Debug("Selected trade")
	assert.Contains(t, readFile(t, path), "symbol=AAPL")

	assert.Nil(t, Setup(filepath.Join(t.TempDir(), "missing", "trader.log"), 1, 2, "loud"))
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestRotatorWithoutBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trader.log")
	r := &Rotator{Filename: path, MaxSize: 8}
	defer r.Close()

	_, err := r.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = r.Write([]byte("second\n"))
	require.NoError(t, err)

	assert.Equal(t, "second\n", readFile(t, path))
	assert.NoFileExists(t, path+".1")
}
