package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore()
	dst := NewMemoryStore()

	require.NoError(t, src.Set(ctx, "kioncrm_clients", []byte(`[]`)))
	require.NoError(t, src.Set(ctx, "theme", []byte(`"dark"`)))
	require.NoError(t, dst.Set(ctx, "theme", []byte(`"light"`)))

	res, err := Copy(ctx, dst, src, false, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"kioncrm_clients"}, res.Copied)
	assert.Equal(t, []string{"theme"}, res.Skipped)
	_, err = dst.Get(ctx, "kioncrm_clients")
	assert.ErrorIs(t, err, ErrNotFound, "dry run writes nothing")

	res, err = Copy(ctx, dst, src, true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"theme"}, res.Overwritten)

	v, err := dst.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(v))
	v, err = dst.Get(ctx, "kioncrm_clients")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))
}
