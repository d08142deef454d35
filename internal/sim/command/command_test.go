package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/geom"
	world "tickcraft.ai/internal/sim/world"
)

func loadCats(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	require.NoError(t, err)
	return cats
}

func TestParse_NormalizesText(t *testing.T) {
	cats := loadCats(t)
	c, err := Parse(cats, "  SetBlock 1   2 3  furnace  ")
	require.NoError(t, err)
	assert.Equal(t, "setblock 1 2 3 furnace", c.Text())

	again, err := Parse(cats, c.Text())
	require.NoError(t, err)
	assert.Equal(t, c.Text(), again.Text())
}

func TestParse_Rejects(t *testing.T) {
	cats := loadCats(t)
	cases := map[string]string{
		"empty":          "",
		"unknown verb":   "explode 1 2 3",
		"missing coords": "setblock 1 2 furnace",
		"bad coord":      "setblock 1 x 3 furnace",
		"unknown block":  "setblock 1 2 3 unobtainium",
		"bad facing":     "setblock 1 2 3 hopper sideways",
		"unknown item":   "give 0 0 0 mithril 1",
		"zero count":     "give 0 0 0 coal 0",
		"negative slot":  "take 0 0 0 -1",
		"bad switch":     "power 0 0 0 maybe",
		"bad weather":    "weather snow",
		"bad player op":  "player fly alice 0 0 0",
		"bee extra":      "bee harvest 0 0 0 x",
		"bee spawn flag": "bee spawn 0 0 0 pollen",
		"mob flag":       "mob zombie 0 0 0 angry",
		"snapshot args":  "snapshot now",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(cats, line)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_UnknownItemKeepsCatalogError(t *testing.T) {
	cats := loadCats(t)
	_, err := Parse(cats, "give 0 0 0 mithril")
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, catalogs.ErrUnknownItem)
}

func TestParseAll_SkipsCommentsAndReportsLine(t *testing.T) {
	cats := loadCats(t)
	cmds, err := ParseAll(cats, []string{"# setup", "", "weather rain", "power 0 64 0 on"})
	require.NoError(t, err)
	assert.Len(t, cmds, 2)

	_, err = ParseAll(cats, []string{"weather rain", "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestVerbs_AllHaveUsage(t *testing.T) {
	for _, v := range Verbs() {
		u, ok := Usage(v)
		require.True(t, ok)
		assert.Contains(t, u, v)
	}
}

func TestApply_ValidatesAgainstWorld(t *testing.T) {
	cats := loadCats(t)
	w, err := world.New(world.WorldConfig{Seed: 1}, cats)
	require.NoError(t, err)

	apply := func(line string) (string, error) {
		c, err := Parse(cats, line)
		require.NoError(t, err)
		return c.Apply(w)
	}

	_, err = apply("give 0 64 0 coal 1")
	require.ErrorIs(t, err, world.ErrNoDevice)

	_, err = apply("setblock 0 9999 0 chest")
	require.ErrorIs(t, err, world.ErrOutOfBounds)

	out, err := apply("setblock 0 64 0 chest")
	require.NoError(t, err)
	assert.Contains(t, out, "placed CHEST")

	out, err = apply("give 0 64 0 coal 3")
	require.NoError(t, err)
	assert.Equal(t, "gave 3 COAL (0 did not fit)", out)

	out, err = apply("contents 0 64 0")
	require.NoError(t, err)
	assert.Contains(t, out, "COAL x3")

	_, err = apply("open bob 0 64 0")
	require.ErrorIs(t, err, world.ErrNoPlayer)

	_, err = apply("player join bob 0 65 0")
	require.NoError(t, err)
	_, err = apply("player join bob 0 65 0")
	require.Error(t, err, "names are unique")

	out, err = apply("inspect 0 64 0")
	require.NoError(t, err)
	assert.Contains(t, out, `"device":"CHEST"`)

	_, err = apply("remove 5 64 5")
	require.Error(t, err)
	assert.Equal(t, "AIR", w.BlockAt(geom.P(5, 64, 5)))

	_, err = apply("snapshot")
	require.Error(t, err, "no snapshot sink")
}
