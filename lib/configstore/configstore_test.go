package configstore

import (
	"os"
	"path/filepath"
	"testing"

	"utprint/lib/pharos"

	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "utprint"))

	config, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, Defaults(), config)
}

func TestSaveAndLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "utprint"))

	saved := Config{Color: pharos.ColorMono, Sides: pharos.Duplex, Token: "abc=def"}
	err := store.Save(saved)
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, saved, loaded)

	// forgetting the token keeps the print defaults
	_, err = store.Update(Config.WithoutToken)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err = store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, Config{Color: pharos.ColorMono, Sides: pharos.Duplex}, loaded)
}

func TestLoadLegacyFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	// files written by older versions have lowercased keys
	legacy := "[PrintDefaults]\ncolor = mono\nsides = 2\n\n[PersistentAuth]\ncookie = 0123456789abcdef\n\n"
	err := os.WriteFile(store.Path(), []byte(legacy), 0600)
	if err != nil {
		t.Fatal(err)
	}

	config, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, Config{Color: pharos.ColorMono, Sides: pharos.Duplex, Token: "0123456789abcdef"}, config)
}

func TestLoadInvalidValues(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	contents := "[PrintDefaults]\nColor = sepia\nSides = 3\n"
	err := os.WriteFile(store.Path(), []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}

	config, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, Defaults(), config)
}

func TestDefaultDir(t *testing.T) {
	t.Setenv(DirEnv, "/tmp/custom-utprint")

	dir, err := DefaultDir()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "/tmp/custom-utprint", dir)
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	{
		settings, err := store.LoadSettings()
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, pharos.DefaultBaseUrl, settings.BaseUrl)
		require.Equal(t, DefaultAddFundsUrl, settings.AddFundsUrl)
		require.Equal(t, 3.0, settings.PollIntervalSeconds)
		require.Equal(t, 600, *settings.JobTimeoutSeconds)
		require.Equal(t, filepath.Join(dir, "history.db"), settings.HistoryPath(dir))
	}

	err := os.WriteFile(filepath.Join(dir, SettingsFilename), []byte(`{
		base_url: "http://localhost:8080/PharosAPI",
		job_timeout_seconds: 0,
		history_file: "-",
		telemetry: {otlp: {traces: {http_endpoint: "http://localhost:4318/v1/traces"}}},
	}`), 0600)
	if err != nil {
		t.Fatal(err)
	}

	settings, err := store.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "http://localhost:8080/PharosAPI", settings.BaseUrl)
	require.Equal(t, 3.0, settings.PollIntervalSeconds)
	require.Equal(t, int64(0), int64(settings.JobTimeout()))
	require.Equal(t, "", settings.HistoryPath(dir))
	require.True(t, settings.Telemetry.Otlp.Traces.Enabled())
	require.False(t, settings.Telemetry.Otlp.Metrics.Enabled())
}
