package build

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/conneroisu/pugar/internal/cache"
	"github.com/conneroisu/pugar/pkg/pug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"index.pug":         "p home",
		"_layout.pug":       "p layout",
		"blog/post.pug":     "p post",
		"blog/_partial.pug": "p partial",
		"drafts/wip.pug":    "p wip",
		".git/HEAD.pug":     "p git",
		"notes.txt":         "not a page",
		"blog/skip.tmp.pug": "p tmp",
		"nested/deep/a.pug": "p a",
	})

	sources, err := Discover([]string{root}, []string{"drafts", "*.tmp.pug"})
	require.NoError(t, err)

	var rels []string
	for _, s := range sources {
		assert.Equal(t, root, s.Root)
		rels = append(rels, s.Rel)
	}
	assert.Equal(t, []string{"blog/post.pug", "index.pug", "nested/deep/a.pug"}, rels)

	_, err = Discover([]string{filepath.Join(root, "missing")}, nil)
	assert.Error(t, err)
	_, err = Discover([]string{filepath.Join(root, "notes.txt")}, nil)
	assert.Error(t, err)
}

func TestSourceOutputPath(t *testing.T) {
	s := Source{Root: "views", Rel: "blog/post.pug"}
	assert.Equal(t, filepath.Join("views", "blog", "post.pug"), s.Path())
	assert.Equal(t, filepath.Join("dist", "blog", "post.html"), s.OutputPath("dist"))
	assert.True(t, IsPartial("blog/_card.pug"))
	assert.False(t, IsPartial("blog/card.pug"))
}

func TestPipelineRun(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "dist")
	writeTree(t, root, map[string]string{
		"index.pug":      "div\n  include _header\n  p #{title}",
		"_header.pug":    "h1 Site",
		"about/team.pug": "ul\n  li Ada\n  li Grace",
		"broken.pug":     "div\n  include _missing",
	})

	store := cache.NewMemoryStore(0, 0)
	p := NewPipeline(Config{SourceDirs: []string{root}, OutputDir: out, Workers: 2},
		pug.Options{Variables: map[string]string{"title": "Welcome"}}, store, nil)

	var seen atomic.Int64
	p.AddCallback(func(Result) { seen.Add(1) })

	results, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int64(3), seen.Load())

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<div>\n\t<h1>Site</h1>\n\t<p>Welcome</p>\n</div>\n", string(index))

	team, err := os.ReadFile(filepath.Join(out, "about", "team.html"))
	require.NoError(t, err)
	assert.Equal(t, "<ul>\n\t<li>Ada</li>\n\t<li>Grace</li>\n</ul>\n", string(team))

	assert.NoFileExists(t, filepath.Join(out, "broken.html"))
	assert.NoFileExists(t, filepath.Join(out, "_header.html"))

	errs := p.Errors().GetErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "broken.pug", errs[0].File)
	assert.Equal(t, 2, errs[0].Line)

	snap := p.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalBuilds)
	assert.Equal(t, int64(1), snap.FailedBuilds)
	assert.Zero(t, snap.CacheHits)

	// unchanged sources are served from the cache on the second run
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	snap = p.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.CacheHits)
	assert.InDelta(t, 100.0/3.0, snap.CacheHitRate(), 1e-9)
}

func TestPipelineCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.pug": "p a", "b.pug": "p b"})
	p := NewPipeline(Config{SourceDirs: []string{root}, OutputDir: t.TempDir()}, pug.Options{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineClean(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.MkdirAll(out, 0o755))

	p := NewPipeline(Config{OutputDir: out}, pug.Options{}, nil, nil)
	require.NoError(t, p.Clean())
	assert.NoDirExists(t, out)

	assert.Error(t, NewPipeline(Config{OutputDir: "."}, pug.Options{}, nil, nil).Clean())
	assert.Error(t, NewPipeline(Config{}, pug.Options{}, nil, nil).Clean())
}

func TestBuildFileUnknownRoot(t *testing.T) {
	p := NewPipeline(Config{OutputDir: t.TempDir()}, pug.Options{}, nil, nil)
	result := p.BuildFile(context.Background(), Source{Root: "elsewhere", Rel: "a.pug"})
	assert.Error(t, result.Err)
	assert.True(t, p.Errors().HasErrors())
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	assert.Zero(t, m.Snapshot().SuccessRate())

	m.Record(Result{Duration: 10})
	m.Record(Result{Duration: 30, CacheHit: true})
	m.Record(Result{Duration: 20, Err: assert.AnError})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalBuilds)
	assert.Equal(t, int64(2), snap.SuccessfulBuilds)
	assert.Equal(t, int64(1), snap.FailedBuilds)
	assert.EqualValues(t, 20, snap.AverageDuration)
	assert.InDelta(t, 200.0/3.0, snap.SuccessRate(), 1e-9)

	m.Reset()
	assert.Zero(t, m.Snapshot().TotalBuilds)
}
