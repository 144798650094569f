package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "9000"
api:
  base_url: "https://api.tumioparbe.com/api"
  timeout: "5s"
storage:
  driver: "redis"
  redis_url: "redis://cache:6379/0"
  ttl: "48h"
cookies:
  secure: true
guard:
  prefixes: ["/dashboard", "/admin"]
registration:
  resend_cooldown: "30s"
`

func TestHTTPConfig_Addr(t *testing.T) {
	require.Equal(t, "0.0.0.0:8080", HTTPConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, EnvLocal, cfg.Env)
	require.Equal(t, "8080", cfg.HTTP.Port)
	require.False(t, cfg.HTTP.TrustProxy, "proxy headers are ignored unless enabled")
	require.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, 24*time.Hour, cfg.Cookies.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.Cookies.RefreshTTL)
	require.Equal(t, []string{"/dashboard"}, cfg.Guard.Prefixes)
	require.Equal(t, 60*time.Second, cfg.Registration.ResendCooldown)
	require.Equal(t, 5*time.Minute, cfg.Registration.OTPTTL)
}

func TestLoad_ExplicitPath(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, EnvProd, cfg.Env)
	require.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr())
	require.Equal(t, "https://api.tumioparbe.com/api", cfg.API.BaseURL)
	require.Equal(t, 5*time.Second, cfg.API.Timeout)
	require.Equal(t, "redis", cfg.Storage.Driver)
	require.Equal(t, 48*time.Hour, cfg.Storage.TTL)
	require.True(t, cfg.Cookies.Secure)
	require.Equal(t, []string{"/dashboard", "/admin"}, cfg.Guard.Prefixes)
	require.Equal(t, 30*time.Second, cfg.Registration.ResendCooldown)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	t.Setenv("PORT", "18080")
	t.Setenv("API_URL", "http://backend:8000/api")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "18080", cfg.HTTP.Port)
	require.Equal(t, "http://backend:8000/api", cfg.API.BaseURL)
}

func TestLoad_ConfigPathBeatsLocal(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", `env: "local"`)
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "stage.yaml", `env: "dev"`))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, EnvDev, cfg.Env)
}

func TestLoad_LocalYAML(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	writeFile(t, ".", "local.yaml", `env: "dev"`)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, EnvDev, cfg.Env)
}

func TestLoad_EnvPrefixesList(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("GUARD_PREFIXES", "/dashboard,/admin")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"/dashboard", "/admin"}, cfg.Guard.Prefixes)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	cases := map[string]string{
		"broken yaml":          "env: [unclosed\n",
		"relative api url":     "api:\n  base_url: \"/api\"\n",
		"redis without url":    "storage:\n  driver: redis\n",
		"postgres without dsn": "storage:\n  driver: postgres\n",
		"unknown driver":       "storage:\n  driver: etcd\n",
		"cookie ttl order":     "cookies:\n  access_ttl: 720h\n  refresh_ttl: 24h\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, "c.yaml", body))
			require.Error(t, err)
		})
	}
}

func TestMustLoad_PanicsOnMissingFile(t *testing.T) {
	require.Panics(t, func() {
		_ = MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}
