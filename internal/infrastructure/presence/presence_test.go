package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCountsConnections(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Join(ctx, "bob"))
	require.NoError(t, m.Join(ctx, "alice"))
	require.NoError(t, m.Join(ctx, "bob"))

	online, err := m.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, online)

	require.NoError(t, m.Leave(ctx, "bob"))
	online, _ = m.Online(ctx)
	assert.Equal(t, []string{"alice", "bob"}, online)

	require.NoError(t, m.Leave(ctx, "bob"))
	require.NoError(t, m.Leave(ctx, "nobody"))
	online, _ = m.Online(ctx)
	assert.Equal(t, []string{"alice"}, online)
}
