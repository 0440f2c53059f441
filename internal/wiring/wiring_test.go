package wiring_test

import (
	"context"
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/d8"
	"go.trai.ch/dexer/internal/adapters/dexgen"
	"go.trai.ch/dexer/internal/core/ports"
	"go.trai.ch/dexer/internal/engine/pipeline"
	_ "go.trai.ch/dexer/internal/wiring"
)

func TestGraph_ResolvesPipeline(t *testing.T) {
	p, _, err := graft.ExecuteFor[*pipeline.Pipeline](context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestGraph_ResolvesBothEngines(t *testing.T) {
	native, _, err := graft.ExecuteFor[*dexgen.Converter](context.Background())
	require.NoError(t, err)
	external, _, err := graft.ExecuteFor[*d8.Converter](context.Background())
	require.NoError(t, err)

	var _ ports.DexConverter = native
	var _ ports.DexConverter = external
}
