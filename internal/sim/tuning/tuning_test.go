package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Configs(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), tu)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("tick_rate_hz: 5\nhopper:\n  cooldown_ticks: 4\n"), 0o644))

	tu, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 5, tu.TickRateHz)
	assert.Equal(t, 4, tu.Hopper.CooldownTicks)
	assert.Equal(t, 5, tu.Hopper.Slots)
	assert.Equal(t, 80, tu.Beacon.CheckEveryTicks)
	assert.Equal(t, "info", tu.LogLevel)
}

func TestLoad_BadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("tick_rate_hz: [\n"), 0o644))
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tuning.yaml")
}
