package engine

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
)

var (
	// ErrUnknownEngine is matched by a ConfigError for an unrecognized key.
	ErrUnknownEngine = errors.New("unknown engine")

	// ErrConstruction is matched by every ConstructionError.
	ErrConstruction = bubble.ErrConstruction
)

// ConfigError reports an engine key that is not registered.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid engine %q (available: %v)", e.Key, Names())
}

func (e *ConfigError) Unwrap() error { return ErrUnknownEngine }

// ConstructionError reports that an engine could not be built.
type ConstructionError struct {
	Engine string
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct engine %s: %v", e.Engine, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Is matches ErrConstruction in addition to the wrapped cause.
func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }
