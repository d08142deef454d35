package ws

import (
	"context"
	"errors"

	"tickcraft.ai/internal/protocol"
	"tickcraft.ai/internal/sim/catalogs"
	"tickcraft.ai/internal/sim/command"
	"tickcraft.ai/internal/sim/device"
	world "tickcraft.ai/internal/sim/world"
)

// ErrorCode maps a command or world error to a protocol code. Unknown
// non-nil errors are E_REJECTED: the command ran and changed nothing.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, world.ErrWorldBusy):
		return protocol.ErrWorldBusy
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return protocol.ErrInternal
	case errors.Is(err, command.ErrInvalid),
		errors.Is(err, world.ErrBadSlot),
		errors.Is(err, world.ErrUnknownBlock),
		errors.Is(err, catalogs.ErrUnknownItem),
		errors.Is(err, device.ErrUnknownEffect),
		errors.Is(err, device.ErrUnknownKind):
		return protocol.ErrBadRequest
	case errors.Is(err, world.ErrNoDevice),
		errors.Is(err, world.ErrNoContainer),
		errors.Is(err, world.ErrOutOfBounds),
		errors.Is(err, world.ErrNoPlayer),
		errors.Is(err, world.ErrNoMob):
		return protocol.ErrInvalidTarget
	case errors.Is(err, device.ErrNoPayment):
		return protocol.ErrNoResource
	case errors.Is(err, device.ErrEffectLocked):
		return protocol.ErrNoPermission
	}
	return protocol.ErrRejected
}
