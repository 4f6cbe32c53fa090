package cache

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/conneroisu/pugar/pkg/pug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	opts := pug.DefaultOptions()
	src := []byte("div hi")

	k1, err := Key(opts, "a.pug", src)
	require.NoError(t, err)
	assert.Len(t, k1, 64)

	again, err := Key(opts, "a.pug", src)
	require.NoError(t, err)
	assert.Equal(t, k1, again)

	otherName, _ := Key(opts, "b.pug", src)
	otherSource, _ := Key(opts, "a.pug", []byte("div bye"))
	withVars := opts
	withVars.Variables = map[string]string{"x": "1"}
	otherOpts, _ := Key(withVars, "a.pug", src)

	assert.NotEqual(t, k1, otherName)
	assert.NotEqual(t, k1, otherSource)
	assert.NotEqual(t, k1, otherOpts)
}

func TestKeyVariableOrder(t *testing.T) {
	a := pug.Options{Variables: map[string]string{"a": "1", "b": "2", "c": "3"}}
	b := pug.Options{Variables: map[string]string{"c": "3", "b": "2", "a": "1"}}

	ka, err := Key(a, "x", nil)
	require.NoError(t, err)
	kb, err := Key(b, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestCachedRender(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{
		"partial.pug": {Data: []byte("p part")},
	}
	renderer := pug.New(pug.Options{Variables: map[string]string{"name": "Ada"}}, fsys)
	store := NewMemoryStore(0, 0)
	cached := NewCached(renderer, store, true, nil)

	src := []byte("div\n  h1 Hi #{name}\n  include partial")
	out, hit, err := cached.Render(ctx, "index.pug", src)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "<div>\n\t<h1>Hi Ada</h1>\n\t<p>part</p>\n</div>", out)

	again, hit, err := cached.Render(ctx, "index.pug", src)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, out, again)
	assert.Equal(t, 1, store.Stats().Entries)

	_, hit, err = cached.Render(ctx, "", []byte("p other"))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCachedDisabled(t *testing.T) {
	store := NewMemoryStore(0, 0)
	cached := NewCached(pug.New(pug.Options{}, fstest.MapFS{}), store, false, nil)

	for range 2 {
		out, hit, err := cached.Render(context.Background(), "a.pug", []byte("br"))
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "<br/>", out)
	}
	assert.Zero(t, store.Stats().Entries)
	assert.Zero(t, store.Stats().Misses)

	nilStore := NewCached(pug.New(pug.Options{}, fstest.MapFS{}), nil, true, nil)
	_, _, err := nilStore.Render(context.Background(), "a.pug", []byte("br"))
	require.NoError(t, err)
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	store := NewMemoryStore(0, 0)
	cached := NewCached(pug.New(pug.Options{}, fstest.MapFS{}), store, true, nil)

	_, _, err := cached.Render(context.Background(), "a.pug", []byte("include missing"))
	require.Error(t, err)
	assert.Zero(t, store.Stats().Entries)
}

func TestCachedInvalidatesOnPartialChange(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{"_nav.pug": {Data: []byte("nav one")}}
	cached := NewCached(pug.New(pug.Options{}, fsys), NewMemoryStore(0, 0), true, nil)
	src := []byte("div\n  include _nav")

	first, _, err := cached.Render(ctx, "index.pug", src)
	require.NoError(t, err)
	assert.Contains(t, first, "<nav>one</nav>")

	fsys["_nav.pug"] = &fstest.MapFile{Data: []byte("nav two")}
	second, hit, err := cached.Render(ctx, "index.pug", src)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Contains(t, second, "<nav>two</nav>")
}
