package setstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSetStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemSetStore()
	ok, err := s.InSet(ctx, "nope", "val")
	assert.NoError(err)
	assert.False(ok)

	s.AddToSet("words", []string{"one", "two"})
	ok, err = s.InSet(ctx, "words", "one")
	assert.NoError(err)
	assert.True(ok)
	ok, err = s.InSet(ctx, "words", "three")
	assert.NoError(err)
	assert.False(ok)
}

func TestLoadFromFileJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	raw, err := json.Marshal(map[string][]string{
		"words": {"alpha", "beta"},
	})
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "lists.json")
	require.NoError(t, os.WriteFile(p, raw, 0644))

	s := NewDefaultSetStore()
	require.NoError(t, s.LoadFromFileJSON(p))

	ok, err := s.InSet(ctx, "words", "alpha")
	assert.NoError(err)
	assert.True(ok)

	// defaults survive a merge of other sets
	ok, err = s.InSet(ctx, SetProfanity, "damn")
	assert.NoError(err)
	assert.True(ok)
}
