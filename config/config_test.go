package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Millisecond, cfg.Input.TickInterval)
	assert.Equal(t, 3, cfg.Capture.Attempts)
	assert.Equal(t, 5, cfg.Bringup.Retries)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	require.NoError(t, err)
	assert.Equal(t, Default().Adb.Path, cfg.Adb.Path)
	assert.Empty(t, cfg.Source)
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "ini",
			file: "config.ini",
			content: `[adb]
path = /opt/platform-tools/adb
serial = emulator-5554

[input]
move_duration = 250ms

[capture]
attempts = 5
`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `[adb]
path = "/opt/platform-tools/adb"
serial = "emulator-5554"

[input]
move_duration = "250ms"

[capture]
attempts = 5
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `adb:
  path: /opt/platform-tools/adb
  serial: emulator-5554
input:
  move_duration: 250ms
capture:
  attempts: 5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "/opt/platform-tools/adb", cfg.Adb.Path)
			assert.Equal(t, "emulator-5554", cfg.Adb.Serial)
			assert.Equal(t, 250*time.Millisecond, cfg.Input.MoveDuration)
			assert.Equal(t, 5, cfg.Capture.Attempts)
			// untouched sections keep their defaults
			assert.Equal(t, 10*time.Millisecond, cfg.Input.TickInterval)
			assert.Equal(t, path, cfg.Source)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "config.xml", "<config/>")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeFile(t, "config.ini", "[capture]\nattempts = 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture.attempts")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Adb.Path = ""
	cfg.Input.TickInterval = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adb.path")
	assert.Contains(t, err.Error(), "input.tick_interval")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TOUCHBRIDGE_ADB_SERIAL", "R5CR1234567")
	t.Setenv("TOUCHBRIDGE_MOVE_DURATION", "1s")
	t.Setenv("TOUCHBRIDGE_BRINGUP_RETRIES", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "R5CR1234567", cfg.Adb.Serial)
	assert.Equal(t, time.Second, cfg.Input.MoveDuration)
	assert.Equal(t, 5, cfg.Bringup.Retries)
}

func TestLoader_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "config.ini", "[logging]\nlevel = info\n")

	loader := NewLoader(path)
	defer loader.Close()

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)

	changed := make(chan *Config, 1)
	loader.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	require.NoError(t, loader.Watch())

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = debug\n"), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, "debug", c.Logging.Level)
		assert.Equal(t, "debug", loader.Config().Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestLoader_CloseDropsPendingReload(t *testing.T) {
	path := writeFile(t, "config.ini", "[logging]\nlevel = info\n")

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	loader.OnChange(func(*Config) {
		called <- struct{}{}
	})

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = debug\n"), 0o600))
	loader.scheduleReload()
	require.NoError(t, loader.Close())
	loader.scheduleReload()

	select {
	case <-called:
		t.Fatal("reload ran after Close")
	case <-time.After(3 * reloadDebounce):
	}
	assert.Equal(t, "info", loader.Config().Logging.Level)
}
