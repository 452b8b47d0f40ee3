package tendon

import (
	"errors"

	"github.com/akmonengine/tendon/actor"
)

var (
	// ErrInvalidBodyPart is returned when a collider or a query targets a
	// body part that does not resolve.
	ErrInvalidBodyPart = errors.New("tendon: invalid body part")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("tendon: invalid config")
	// ErrInvalidMultibody is returned when a multibody description cannot be built.
	ErrInvalidMultibody = errors.New("tendon: invalid multibody")

	ErrInvalidShape = actor.ErrInvalidShape
	ErrInvalidMass  = actor.ErrInvalidMass
)
