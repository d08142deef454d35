package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrUnauthorized,
		ErrWorldBusy,
		ErrBadRequest,
		ErrNoPermission,
		ErrNoResource,
		ErrInvalidTarget,
		ErrRejected,
		ErrInternal,
	}
	for _, c := range cases {
		assert.True(t, IsKnownCode(c), "expected known code: %q", c)
	}
	assert.False(t, IsKnownCode("E_NOT_DEFINED"))
}

func TestResultHelpers(t *testing.T) {
	ok := Accepted("r1", 12, "moved 3")
	assert.Equal(t, TypeResult, ok.Type)
	assert.True(t, ok.Accepted)
	assert.Equal(t, uint64(12), ok.Tick)

	bad := Rejected("r2", ErrBadRequest, "unknown verb")
	assert.False(t, bad.Accepted)
	assert.Equal(t, "r2", bad.ReqID)
	assert.True(t, IsKnownCode(bad.Code))
}
