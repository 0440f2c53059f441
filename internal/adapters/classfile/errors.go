package classfile

import (
	"errors"

	"go.trai.ch/dexer/internal/core/domain"
)

func malformed(err error) error {
	return errors.Join(domain.ErrMalformedClass, err)
}
