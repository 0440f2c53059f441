package progrock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/dexer/internal/adapters/telemetry/progrock"
	"go.trai.ch/dexer/internal/core/domain"
	"go.trai.ch/dexer/internal/core/ports"
)

func TestNew(t *testing.T) {
	recorder := progrock.New()
	assert.NotNil(t, recorder)
}

func TestRecorder_Stages(t *testing.T) {
	recorder := progrock.New()

	ctx, resolve := recorder.Record(context.Background(), string(domain.StageResolve))
	fromCtx, ok := ports.VertexFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, resolve, fromCtx)

	_, err := resolve.Stdout().Write([]byte("3 locations\n"))
	require.NoError(t, err)
	resolve.Log(domain.LogLevelDebug, "debug msg")
	resolve.Complete(nil)

	_, convert := recorder.Record(ctx, string(domain.StageConvert))
	convert.Cached()
	convert.Complete(nil)

	_, again := recorder.Record(ctx, string(domain.StageConvert))
	assert.NotSame(t, convert, again)
	again.Complete(errors.New("failed"))

	assert.NoError(t, recorder.Close())
}
