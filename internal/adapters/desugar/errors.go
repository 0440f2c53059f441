package desugar

import (
	"errors"

	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/zerr"
)

func unsupported(msg string) error {
	return errors.Join(domain.ErrUnsupportedConstruct, zerr.New(msg))
}
