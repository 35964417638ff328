package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/internal/config"
	"github.com/aretw0/rerun/internal/logging"
	rerunhttp "github.com/aretw0/rerun/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rerun version "+rerun.Version+"\n", out)
}

func TestDemoCommand(t *testing.T) {
	out, err := execute(t, "demo", "--plain", "--graph")
	require.NoError(t, err)

	assert.Contains(t, out, "## Open the app")
	assert.Contains(t, out, "main[0] <h1>Todos</h1>")
	assert.Contains(t, out, "1 of 2 remaining")
	assert.Contains(t, out, "(1 rerun)")
	assert.Contains(t, out, "How it works")
	assert.True(t, strings.Contains(out, "graph TD"), out)
}

func TestSetup_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rerun.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0644))

	_, err := execute(t, "demo", "--plain", "--config", path)
	assert.ErrorContains(t, err, "loud")
}

func TestNewApp_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()

	app, err := newApp(context.Background(), cfg, logging.NewNop(), rerunhttp.NewStreamManager(nil), prometheus.NewRegistry())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.Cache().Put(ctx, "k", "v"))
	assert.True(t, mr.Exists("rerun:cache:k"))
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := newApp(context.Background(), cfg, logging.NewNop(), rerunhttp.NewStreamManager(nil), prometheus.NewRegistry())
	assert.ErrorContains(t, err, "unreachable")
}

func TestNewApp_EncryptedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.EncryptionKey = strings.Repeat("0f", 32)
	cfg.Redis.MaskPatterns = []string{"password"}

	app, err := newApp(context.Background(), cfg, logging.NewNop(), rerunhttp.NewStreamManager(nil), prometheus.NewRegistry())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.Cache().Put(ctx, "user", map[string]any{"name": "ada", "password": "hunter2"}))

	raw, err := mr.Get("rerun:cache:user")
	require.NoError(t, err)
	assert.NotContains(t, raw, "ada")
	assert.NotContains(t, raw, "hunter2")

	v, ok, err := app.Cache().Get(ctx, "user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "ada", "password": "***"}, v)
}
