package dalvik

import (
	"errors"
	"fmt"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

func malformed(msg string) error {
	return errors.Join(domain.ErrMalformedClass, zerr.New(msg))
}

func unsupported(msg string) error {
	return errors.Join(domain.ErrUnsupportedConstruct, zerr.New(msg))
}

func unsupportedOpcode(op byte) error {
	return errors.Join(domain.ErrUnsupportedConstruct,
		zerr.With(zerr.New("unsupported opcode"), "opcode", fmt.Sprintf("0x%02x", op)))
}

// ClassError attributes a failure to the program class it was found in.
type ClassError struct {
	// Class is the descriptor of the program class.
	Class string
	Err   error
}

func (e *ClassError) Error() string {
	return e.Class + ": " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *ClassError) Unwrap() error {
	return e.Err
}
