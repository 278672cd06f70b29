package player

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValidOnceVideoPathSet(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.VideoPath = "clip.mp4"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]PlaybackConfig{
		"missing video path": {FitMode: "letterbox", TargetFPS: 60, QueueCapacity: 120},
		"negative cols":       {VideoPath: "a.mp4", Cols: -1, FitMode: "letterbox", TargetFPS: 60, QueueCapacity: 120},
		"zero target fps":     {VideoPath: "a.mp4", FitMode: "letterbox", TargetFPS: 0, QueueCapacity: 120},
		"zero queue capacity": {VideoPath: "a.mp4", FitMode: "letterbox", TargetFPS: 60, QueueCapacity: 0},
		"bad fit mode":        {VideoPath: "a.mp4", FitMode: "stretch", TargetFPS: 60, QueueCapacity: 120},
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
		})
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "playback.yaml")

	content := "video_path: clip.mp4\ncols: 80\nrows: 24\nfit_mode: fill\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadYAML(path)
	require.NoError(t, err)

	assert.Equal(t, "clip.mp4", cfg.VideoPath)
	assert.Equal(t, 80, cfg.Cols)
	assert.Equal(t, 24, cfg.Rows)
	assert.Equal(t, "fill", cfg.FitMode)
	assert.Equal(t, defaultTargetFPS, cfg.TargetFPS)
	assert.Equal(t, defaultQueueCapacity, cfg.QueueCapacity)
}

func TestLoadYAMLMissingFileIsConfigInvalid(t *testing.T) {
	t.Parallel()

	_, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestConfigResolveAppliesFlagPrecedenceOverYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "playback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("video_path: from-yaml.mp4\ntarget_fps: 24\n"), 0o600))

	c := NewConfig()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.RegisterFlags(flags)

	require.NoError(t, flags.Parse([]string{"--" + c.Flags.ConfigFile, path, "--" + c.Flags.TargetFPS, "30"}))

	cfg, err := c.Resolve(flags)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml.mp4", cfg.VideoPath, "YAML value kept when flag not set")
	assert.Equal(t, 30, cfg.TargetFPS, "explicitly-set flag overrides YAML")
}
