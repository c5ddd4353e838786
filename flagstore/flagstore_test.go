package flagstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemFlagStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fs := NewMemFlagStore()

	flags, err := fs.Get(ctx, UserKey("u1"))
	assert.NoError(err)
	assert.Empty(flags)

	assert.NoError(fs.Add(ctx, UserKey("u1"), []string{"profanity", "spam-links"}))
	assert.NoError(fs.Add(ctx, UserKey("u1"), []string{"profanity"}))

	flags, err = fs.Get(ctx, UserKey("u1"))
	assert.NoError(err)
	assert.Equal([]string{"profanity", "spam-links"}, flags)

	// user and content keys are distinct namespaces
	flags, err = fs.Get(ctx, ContentKey("u1"))
	assert.NoError(err)
	assert.Empty(flags)

	assert.NoError(fs.Remove(ctx, UserKey("u1"), []string{"spam-links", "not-present"}))
	flags, err = fs.Get(ctx, UserKey("u1"))
	assert.NoError(err)
	assert.Equal([]string{"profanity"}, flags)
}
