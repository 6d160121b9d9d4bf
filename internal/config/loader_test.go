package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_WritesDefaultConfigWhenMissing(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	req.NoError(err)
	req.Equal(path, resolved)
	req.Equal(Default().Addr, cfg.Addr)
	req.NoError(cfg.Validate())

	_, err = os.Stat(path)
	req.NoError(err, "default config file should have been written")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	req.NoError(os.WriteFile(path, []byte("addr: \":9000\"\nshutdown_timeout: 3s\n"), 0o600))

	t.Setenv("PAIRCHAT_ADDR", ":9100")

	cfg, _, err := Load(nil, path)
	req.NoError(err)
	req.Equal(":9100", cfg.Addr)
	req.Equal(3*time.Second, cfg.ShutdownTimeout)
}

func TestValidate_RejectsShortSecret(t *testing.T) {
	cfg := Default()
	cfg.JWTSecret = "short"

	require.Error(t, cfg.Validate())
}

func TestUpdateFrom_KeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1234"})

	require.Equal(t, ":1234", cfg.Addr)
	require.Equal(t, Default().DatabasePath, cfg.DatabasePath)
}
