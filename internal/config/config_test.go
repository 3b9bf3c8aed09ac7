package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile — утилита записи временного файла конфигурации.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// chdir — смена текущего рабочего каталога с автоматическим откатом.
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
  port: "8080"
  base_path: "/api/users"
  trust_proxy: true
  docs: false
grpc:
  port: "6001"
auth:
  access_secret: "access-secret"
  refresh_secret: "refresh-secret"
  access_token_ttl: "30m"
  refresh_token_ttl: "72h"
  issuer: "accounts"
  audience: ["web", "mobile"]
  insecure_cookies: true
db:
  url: "mongodb://localhost:27017/videotube"
redis:
  url: "redis://localhost:6379/0"
s3:
  endpoint: "http://localhost:9000"
  access_key: "root"
  secret_key: "rootpass"
  bucket: "avatars"
  public_base_url: "http://cdn.local"
media:
  max_size_bytes: 1048576
  allowed_content_types: ["image/png"]
limits:
  login_rps: 2.5
  login_burst: 10
timeouts:
  request: 3s
  shutdown: 20s
`

const minimalYAML = `
auth:
  access_secret: "a"
  refresh_secret: "r"
db:
  url: "mongodb://localhost:27017/videotube"
s3:
  endpoint: "localhost:9000"
`

func TestAddr(t *testing.T) {
	t.Parallel()

	require.Equal(t, "127.0.0.1:8000", HTTPConfig{Host: "127.0.0.1", Port: "8000"}.Addr())
	require.Equal(t, "0.0.0.0:50061", GRPCConfig{Host: "0.0.0.0", Port: "50061"}.Addr())
}

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr())
	require.Equal(t, "/api/users", cfg.HTTP.BasePath)
	require.True(t, cfg.HTTP.TrustProxy)
	require.False(t, cfg.HTTP.Docs)
	require.Equal(t, "6001", cfg.GRPC.Port)
	require.Equal(t, "access-secret", cfg.Auth.AccessSecret)
	require.Equal(t, "refresh-secret", cfg.Auth.RefreshSecret)
	require.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 72*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, []string{"web", "mobile"}, cfg.Auth.Audience)
	require.True(t, cfg.Auth.InsecureCookies)
	require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	require.Equal(t, "avatars", cfg.S3.Bucket)
	require.EqualValues(t, 1<<20, cfg.Media.MaxSizeBytes)
	require.Equal(t, []string{"image/png"}, cfg.Media.AllowedContentTypes)
	require.InDelta(t, 2.5, cfg.Limits.LoginRPS, 1e-9)
	require.Equal(t, 10, cfg.Limits.LoginBurst)
	require.Equal(t, 3*time.Second, cfg.Timeouts.Request)
	require.Equal(t, 20*time.Second, cfg.Timeouts.Shutdown)
}

func TestLoad_WithCONFIG_PATH_Defaults(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "from_env_path.yaml", minimalYAML)
	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "8000", cfg.HTTP.Port)
	require.Equal(t, "/api/v1/users", cfg.HTTP.BasePath)
	require.False(t, cfg.HTTP.TrustProxy)
	require.True(t, cfg.HTTP.Docs)
	require.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, 240*time.Hour, cfg.Auth.RefreshTokenTTL)
	require.Equal(t, "accounts-service", cfg.Auth.Issuer)
	require.Equal(t, []string{"videotube"}, cfg.Auth.Audience)
	require.False(t, cfg.Auth.InsecureCookies)
	require.Empty(t, cfg.Redis.URL)
	require.Equal(t, "accounts:rt:", cfg.Redis.Prefix)
	require.Equal(t, "media", cfg.S3.Bucket)
	require.EqualValues(t, 5<<20, cfg.Media.MaxSizeBytes)
	require.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, cfg.Media.AllowedContentTypes)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Request)
}

func TestLoad_WithLocalYAML_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

func TestLoad_EnvOverlaysYAML(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("DATABASE_URL", "mongodb://env/videotube")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	require.Equal(t, "mongodb://env/videotube", cfg.DB.URL)
}

func TestLoad_EnvOnly_OK(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_URL", "mongodb://env/videotube")
	t.Setenv("ACCESS_TOKEN_SECRET", "env-access")
	t.Setenv("REFRESH_TOKEN_SECRET", "env-refresh")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("ENV", "dev")
	t.Setenv("LOGIN_BURST", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "mongodb://env/videotube", cfg.DB.URL)
	require.Equal(t, "minio:9000", cfg.S3.Endpoint)
	require.Equal(t, 3, cfg.Limits.LoginBurst)
}

func TestLoad_EnvOnly_NoConfig_ReturnsDescriptiveError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "config not found: provide --config, CONFIG_PATH, local.yaml or env vars")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stat failed")
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "same_secrets",
			yaml: `
auth: { access_secret: "x", refresh_secret: "x" }
db: { url: "mongodb://localhost/db" }
s3: { endpoint: "localhost:9000" }
`,
			want: "must differ",
		},
		{
			name: "access_ttl_not_shorter",
			yaml: `
auth: { access_secret: "a", refresh_secret: "r", access_token_ttl: "48h", refresh_token_ttl: "24h" }
db: { url: "mongodb://localhost/db" }
s3: { endpoint: "localhost:9000" }
`,
			want: "must be shorter",
		},
		{
			name: "bad_media_size",
			yaml: `
auth: { access_secret: "a", refresh_secret: "r" }
db: { url: "mongodb://localhost/db" }
s3: { endpoint: "localhost:9000" }
media: { max_size_bytes: -1 }
`,
			want: "media.max_size_bytes",
		},
		{
			name: "bad_login_limits",
			yaml: `
auth: { access_secret: "a", refresh_secret: "r" }
db: { url: "mongodb://localhost/db" }
s3: { endpoint: "localhost:9000" }
limits: { login_rps: -1 }
`,
			want: "limits.login_rps",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := writeFile(t, t.TempDir(), "c.yaml", tt.yaml)
			_, err := Load(p)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
