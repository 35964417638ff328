// Package testutils holds fixtures shared by the package tests.
package testutils

import (
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/pkg/adapters/memory"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// SetupRedis starts an in-process Redis server and a client connected to it.
// Both are closed when the test ends.
func SetupRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// NewApp creates an App whose updates are captured by the returned Recorder.
func NewApp(t *testing.T, opts ...rerun.Option) (*rerun.App, *memory.Recorder) {
	t.Helper()

	rec := memory.NewRecorder()
	app, err := rerun.New(append([]rerun.Option{rerun.WithTransport(rec)}, opts...)...)
	require.NoError(t, err, "Failed to create app")
	return app, rec
}

// Rendered drains the recorder and joins the markup of every update, one per line.
func Rendered(rec *memory.Recorder) string {
	var b strings.Builder
	for _, m := range rec.Drain() {
		if m.Render != nil {
			b.WriteString(*m.Render)
			b.WriteString("\n")
		}
	}
	return b.String()
}
