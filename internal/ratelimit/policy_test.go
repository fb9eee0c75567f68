package ratelimit_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uplifor/aac-api/internal/ratelimit"
)

func TestDefaultPolicy_Match(t *testing.T) {
	p := ratelimit.DefaultPolicy()

	tests := []struct {
		path  string
		name  string
		limit int
	}{
		{"/user/login", "auth", 10},
		{"/api/auth/refresh", "auth", 10},
		{"/user/register", "register", 5},
		{"/auth/register", "auth", 10},
		{"/api/tts/speak", "tts", 50},
		{"/api/devices/1", "devices", 100},
		{"/api/games/score", "games", 200},
		{"/api/ai/suggest", "ai", 150},
		{"/profiles/7", "default", 100},
		{"/", "default", 100},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := p.Match(tt.path)
			assert.Equal(t, tt.name, r.Name)
			assert.Equal(t, tt.limit, r.Limit)
			assert.Equal(t, time.Minute, r.Window)
		})
	}
}

func TestDevelopmentPolicy_IsLooser(t *testing.T) {
	prod := ratelimit.DefaultPolicy()
	dev := ratelimit.DevelopmentPolicy()

	for _, path := range []string{"/login", "/register", "/tts", "/devices", "/games", "/ai", "/other"} {
		assert.Greater(t, dev.Match(path).Limit, prod.Match(path).Limit, path)
	}
	assert.Equal(t, 500, dev.Default.Limit)
}

func TestParsePolicy(t *testing.T) {
	data := []byte(`
rules:
  - name: auth
    match: ["/login"]
    limit: 3
    windowSeconds: 30
default:
  limit: 40
  windowSeconds: 120
`)

	p, err := ratelimit.ParsePolicy(data)
	require.NoError(t, err)

	require.Len(t, p.Rules, 1)
	assert.Equal(t, ratelimit.Rule{Name: "auth", Match: []string{"/login"}, Limit: 3, Window: 30 * time.Second}, p.Rules[0])
	assert.Equal(t, "default", p.Default.Name)
	assert.Equal(t, 40, p.Default.Limit)
	assert.Equal(t, 2*time.Minute, p.MaxWindow())
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := map[string]string{
		"zero limit":     "rules: [{name: a, match: [/a], limit: 0, windowSeconds: 60}]\ndefault: {limit: 1, windowSeconds: 60}",
		"empty match":    "rules: [{name: a, match: [], limit: 1, windowSeconds: 60}]\ndefault: {limit: 1, windowSeconds: 60}",
		"missing window": "default: {limit: 1}",
		"unknown field":  "default: {limit: 1, windowSeconds: 60, burst: 4}",
		"not yaml":       "rules: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ratelimit.ParsePolicy([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  limit: 7\n  windowSeconds: 10\n"), 0o600))

	p, err := ratelimit.LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Match("/anything").Limit)

	_, err = ratelimit.LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
