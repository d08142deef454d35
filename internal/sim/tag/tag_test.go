package tag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcraft.ai/internal/sim/item"
)

func TestGettersTreatWrongKindAsAbsent(t *testing.T) {
	c := Compound{}
	c.PutString("CookTime", "lots")
	c.PutInt("BurnTime", 40)

	_, ok := c.GetInt("CookTime")
	assert.False(t, ok)
	assert.Equal(t, 200, c.IntOr("CookTime", 200))
	assert.Equal(t, 40, c.IntOr("BurnTime", 0))
	_, ok = c.GetCompound("BurnTime")
	assert.False(t, ok)
}

func TestJSONShape(t *testing.T) {
	c := Compound{}
	c.PutInt("b", 2)
	c.PutString("a", "x")
	c.PutList("l", []Value{Int(1), String("two")})
	c.PutCompound("n", Compound{"k": Int(7)})

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"l":[1,"two"],"n":{"k":7}}`, string(b))

	var back Compound
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, c, back)
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	var c Compound
	assert.Error(t, json.Unmarshal([]byte(`{"x":1.5}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &c))
}

func TestDecodeSlotsDropsGarbage(t *testing.T) {
	list := EncodeSlots([]item.Stack{item.Of("COAL", 3), item.Empty, {Item: "POTION", Count: 1, Potion: "AWKWARD"}})
	require.Len(t, list, 2)

	list = append(list,
		String("junk"),
		Nested(Compound{"slot": Int(9), "id": String("COAL"), "count": Int(1)}),
		Nested(Compound{"slot": Int(1), "id": String("COAL"), "count": Int(-4)}),
	)
	dst := make([]item.Stack, 3)
	dropped := DecodeSlots(list, dst)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, item.Of("COAL", 3), dst[0])
	assert.True(t, dst[1].IsEmpty())
	assert.Equal(t, "AWKWARD", dst[2].Potion)
}

func TestCloneIsDeep(t *testing.T) {
	c := Compound{"n": Nested(Compound{"k": Int(1)})}
	d := c.Clone()
	d["n"].Compound["k"] = Int(2)
	v, _ := c["n"].Compound.GetInt("k")
	assert.EqualValues(t, 1, v)
}
