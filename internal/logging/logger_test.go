package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zap.WarnLevel, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zap.InfoLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	l, err := New("info")
	require.NoError(t, err)
	require.NoError(t, l.SetLevel("debug"))
	assert.Equal(t, "debug", l.Level())
	assert.Error(t, l.SetLevel("nope"))
	assert.Equal(t, "debug", l.Level())
}
