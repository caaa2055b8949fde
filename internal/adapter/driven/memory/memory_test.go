package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjoubert/viproster/internal/adapter/driven/memory"
	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

func TestRoleSource_AddHasRemove(t *testing.T) {
	r := memory.NewRoleSource()
	ctx := context.Background()

	has, err := r.HasRole(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, r.AddRole(ctx, "u1"))
	require.NoError(t, r.AddRole(ctx, "u1")) // idempotent

	has, err = r.HasRole(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, r.RemoveRole(ctx, "u1"))
	assert.ErrorIs(t, r.RemoveRole(ctx, "u1"), driven.ErrNotFound)
}

func TestRoleSource_SeedAndList(t *testing.T) {
	r := memory.NewRoleSource()
	r.Seed(
		model.Holder{ID: "u1", DisplayName: "Alice"},
		model.Holder{ID: "u2", DisplayName: "Bob"},
	)

	holders, err := r.ListHolders(context.Background())
	require.NoError(t, err)
	assert.Len(t, holders, 2)
}

func TestDisplay_CreateEditDelete(t *testing.T) {
	d := memory.NewDisplay()
	ctx := context.Background()

	id, err := d.Create(ctx, "first")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, d.Edit(ctx, id, "second"))
	content, ok := d.Content(id)
	require.True(t, ok)
	assert.Equal(t, "second", content)

	d.Delete(id)
	assert.ErrorIs(t, d.Edit(ctx, id, "third"), driven.ErrNotFound)
}

func TestNotifier_RecordsMessages(t *testing.T) {
	n := memory.NewNotifier(true)
	ctx := context.Background()

	require.NoError(t, n.Send(ctx, "one"))
	require.NoError(t, n.Send(ctx, "two"))

	assert.Equal(t, []string{"one", "two"}, n.Sent())
}
