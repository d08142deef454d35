package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	s := Of("COAL", 3)
	got := s.Split(2)
	assert.Equal(t, Of("COAL", 2), got)
	assert.Equal(t, 1, s.Count)

	got = s.Split(5)
	assert.Equal(t, 1, got.Count)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, Empty, s)
}

func TestSameItemAndData(t *testing.T) {
	a := Stack{Item: "POTION", Count: 1, Potion: "AWKWARD"}
	b := Stack{Item: "POTION", Count: 1, Potion: "WATER"}
	assert.False(t, SameItemAndData(a, b))
	b.Potion = "AWKWARD"
	assert.True(t, SameItemAndData(a, b))

	worn := Stack{Item: "SHEARS", Count: 1, Damage: 3}
	assert.False(t, SameItemAndData(worn, Of("SHEARS", 1)))
}

func TestOfRejectsEmpty(t *testing.T) {
	assert.True(t, Of("", 4).IsEmpty())
	assert.True(t, Of("COAL", 0).IsEmpty())
	assert.Equal(t, Empty, Normalize(Stack{Item: "COAL"}))
}
