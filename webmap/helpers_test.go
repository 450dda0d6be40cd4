package webmap_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/erraggy/wmtools/webmap"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(w io.Writer) webmap.Logger {
	return webmap.NewSlogAdapter(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
