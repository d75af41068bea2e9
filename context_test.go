package goaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidroman0O/goaction/store"
)

func TestContextIsImmutable(t *testing.T) {
	// Create a context and derive a few others from it
	base := NewContext(context.Background(), "create", map[string]any{"a": 1}, map[string]any{"user": "ann"})

	withAssign := base.WithAssign("role", "admin")
	withParams := base.WithParams(map[string]any{"b": 2})
	withParam := base.WithParam("c", 3)
	withPrivate := base.WithPrivate("k", "v")
	withResult := base.WithResult(1)

	assert.False(t, base.Assigns().Has("role"))
	assert.Equal(t, map[string]any{"a": 1}, base.Params().Map())
	assert.Equal(t, 0, base.Private().Len())
	_, ok := base.Result()
	assert.False(t, ok)

	assert.True(t, withAssign.Assigns().Has("role"))
	assert.Equal(t, map[string]any{"b": 2}, withParams.Params().Map())
	assert.Equal(t, map[string]any{"a": 1, "c": 3}, withParam.Params().Map())
	assert.True(t, withPrivate.Private().Has("k"))
	r, ok := withResult.Result()
	assert.True(t, ok)
	assert.Equal(t, OK(1), r)
}

func TestContextTypedAccess(t *testing.T) {
	ctx := NewContext(nil, "create", map[string]any{"age": 18}, nil)

	age, err := store.Get[int](ctx.Params(), "age")
	require.NoError(t, err)
	assert.Equal(t, 18, age)

	_, err = store.Get[string](ctx.Params(), "age")
	assert.ErrorIs(t, err, store.ErrTypeMismatch)

	assert.Equal(t, "guest", store.GetOrDefault(ctx.Assigns(), "user", "guest"))
	assert.NotNil(t, ctx.GoContext())
	assert.Equal(t, "create", ctx.Action())
}

func TestContextWithResultKeepsResults(t *testing.T) {
	ctx := Context{}.WithResult(Error("x"))

	r, ok := ctx.Result()
	require.True(t, ok)
	assert.False(t, r.IsOK())
	assert.Equal(t, "x", r.Reason())
	assert.NotNil(t, Context{}.GoContext())
}
