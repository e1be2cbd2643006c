package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitDisabledDiscards(t *testing.T) {
	t.Cleanup(func() { L = Discard() })

	closer, err := Init(Options{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, closer())
	require.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestInitWriterJSON(t *testing.T) {
	t.Cleanup(func() { L = Discard() })

	var buf bytes.Buffer
	_, err := Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelDebug, JSON: true})
	require.NoError(t, err)

	L.Debug("chunk acquired", "base", "0x1000")
	require.Contains(t, buf.String(), `"msg":"chunk acquired"`)
	require.Contains(t, buf.String(), `"base":"0x1000"`)
}

func TestInitLogDirRemovesExpiredFiles(t *testing.T) {
	t.Cleanup(func() { L = Discard() })

	dir := t.TempDir()
	old := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -retentionDays-2).Format("2006-01-02")+logSuffix)
	require.NoError(t, os.WriteFile(old, []byte("stale"), 0o644))
	unrelated := filepath.Join(dir, "other.log")
	require.NoError(t, os.WriteFile(unrelated, nil, 0o644))

	closer, err := Init(Options{Enabled: true, LogDir: dir})
	require.NoError(t, err)
	L.Info("hello")
	require.NoError(t, closer())

	_, err = os.Stat(old)
	require.True(t, os.IsNotExist(err), "expired log should be removed")
	_, err = os.Stat(unrelated)
	require.NoError(t, err)

	today := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	data, err := os.ReadFile(today)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestOr(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.Same(t, custom, Or(custom))
	require.Same(t, L, Or(nil))
}
