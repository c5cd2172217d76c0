package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
	"github.com/ironsheep/frame-guide-mcp/internal/detection"
)

// load runs Load from an empty directory so no stray frame-guide.yaml or
// .env is picked up.
func load(t *testing.T, opts LoadOptions) (*Settings, error) {
	t.Helper()
	chdir(t, t.TempDir())
	return Load(NewViper(), opts)
}

func TestLoad_Defaults(t *testing.T) {
	s, err := load(t, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "en", s.Locale)
	assert.Equal(t, 1280, s.Frame.MaxDimension)
	assert.Equal(t, alignment.Box{X: 0.08, Y: 0.24, Width: 0.84, Height: 0.54}, s.GuideRegion())
	assert.Equal(t, detection.DefaultEdgeOptions(), s.EdgeOptions())
	assert.Equal(t, alignment.DefaultThresholds(), s.AlignmentThresholds())
	assert.Equal(t, alignment.LocaleEnglish, s.MessageLocale())

	assert.False(t, s.VehicleAPI.Configured())
	assert.Equal(t, "https://aip.baidubce.com", s.VehicleAPI.BaseURL)
	assert.Equal(t, 10*time.Second, s.VehicleAPI.Timeout)
	assert.Equal(t, 5*time.Minute, s.VehicleAPI.CacheTTL)
}

func TestDefaults_MatchLoad(t *testing.T) {
	t.Setenv("FRAME_GUIDE_LOCALE", "zh")
	loaded, err := load(t, LoadOptions{})
	require.NoError(t, err)

	defaults := Defaults()
	require.NoError(t, Validate(defaults))
	assert.Equal(t, "en", defaults.Locale)

	loaded.Locale = "en"
	assert.Equal(t, loaded, defaults)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("FRAME_GUIDE_LOG_LEVEL", "debug")
	t.Setenv("FRAME_GUIDE_LOCALE", "zh-CN")
	t.Setenv("FRAME_GUIDE_EDGE_THRESHOLD", "50")
	t.Setenv("FRAME_GUIDE_GUIDE_REGION", "0.1,0.2,0.7,0.5")
	t.Setenv("FRAME_GUIDE_THRESHOLDS_MATCHED_IOU", "0.6")
	t.Setenv("FRAME_GUIDE_VEHICLE_API_API_KEY", "key")
	t.Setenv("FRAME_GUIDE_VEHICLE_API_SECRET_KEY", "secret")
	t.Setenv("FRAME_GUIDE_VEHICLE_API_TIMEOUT", "3s")

	s, err := load(t, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, alignment.LocaleChinese, s.MessageLocale())
	assert.Equal(t, 50.0, s.Edge.Threshold)
	assert.Equal(t, alignment.Box{X: 0.1, Y: 0.2, Width: 0.7, Height: 0.5}, s.GuideRegion())
	assert.Equal(t, 0.6, s.AlignmentThresholds().MatchedIoU)
	assert.True(t, s.VehicleAPI.Configured())
	assert.Equal(t, 3*time.Second, s.VehicleAPI.Timeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yaml")
	yaml := `
log:
  level: warn
guide:
  region: [0.05, 0.3, 0.9, 0.5]
edge:
  sample_step: 1
thresholds:
  good_confidence: 0.55
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o600))

	s, err := load(t, LoadOptions{ConfigFile: file})
	require.NoError(t, err)

	assert.Equal(t, "warn", s.Log.Level)
	assert.Equal(t, alignment.Box{X: 0.05, Y: 0.3, Width: 0.9, Height: 0.5}, s.GuideRegion())
	assert.Equal(t, 1, s.Edge.SampleStep)
	assert.Equal(t, 0.55, s.Thresholds.GoodConfidence)
	// untouched keys keep defaults
	assert.Equal(t, 0.70, s.Thresholds.MatchedConfidence)
}

func TestLoad_DiscoveredConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("frame-guide.yaml", []byte("locale: zh\n"), 0o600))

	s, err := Load(NewViper(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "zh", s.Locale)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, LoadOptions{ConfigFile: "/nonexistent/frame-guide.yaml"})
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FRAME_GUIDE_FRAME_MAX_DIMENSION=640\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FRAME_GUIDE_FRAME_MAX_DIMENSION") })

	s, err := load(t, LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 640, s.Frame.MaxDimension)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"level", "FRAME_GUIDE_LOG_LEVEL", "chatty"},
		{"threshold", "FRAME_GUIDE_EDGE_THRESHOLD", "300"},
		{"sample step", "FRAME_GUIDE_EDGE_SAMPLE_STEP", "0"},
		{"region length", "FRAME_GUIDE_GUIDE_REGION", "0.1,0.2,0.3"},
		{"region range", "FRAME_GUIDE_GUIDE_REGION", "0.1,0.2,1.3,0.5"},
		{"confidence", "FRAME_GUIDE_THRESHOLDS_GOOD_CONFIDENCE", "1.5"},
		{"metrics addr", "FRAME_GUIDE_METRICS_ADDR", "not an address"},
		{"timeout", "FRAME_GUIDE_VEHICLE_API_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := load(t, LoadOptions{})
			assert.Error(t, err)
		})
	}
}

func TestLoad_MetricsAddr(t *testing.T) {
	t.Setenv("FRAME_GUIDE_METRICS_ADDR", "127.0.0.1:9090")
	s, err := load(t, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", s.Metrics.Addr)
}
