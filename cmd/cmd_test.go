package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pugar/internal/config"
	"github.com/conneroisu/pugar/internal/htmlcheck"
	"github.com/conneroisu/pugar/pkg/pug"
)

// resetFlags restores package level flag values and viper state between
// tests.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		viper.Reset()
		renderOutput, renderVars, renderCSRF = "", nil, ""
		renderIndent, renderEscape, renderCache = 0, "", false
		initInteractive, initForce = false, false
		cacheStatsFormat = "text"
		versionFormat, versionShort, versionDetailed = "text", false, false
	}
	reset()
	t.Cleanup(reset)
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func TestRenderOptions(t *testing.T) {
	resetFlags(t)

	cfg := config.Default()
	cfg.Render.Variables = map[string]string{"site": "docs", "title": "old"}

	renderVars = map[string]string{"title": "new"}
	renderCSRF = "tok"
	renderIndent = 4
	renderEscape = "html"

	opts, err := renderOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"site": "docs", "title": "new"}, opts.Variables)
	assert.Equal(t, "tok", opts.CSRFToken)
	assert.Equal(t, 4, opts.IndentUnit)
	assert.Equal(t, pug.EscapeHTML, opts.Escape)
	assert.Equal(t, "old", cfg.Render.Variables["title"], "config must not be mutated")

	renderEscape = "shout"
	_, err = renderOptions(cfg)
	assert.Error(t, err)

	renderEscape = ""
	renderIndent = -1
	_, err = renderOptions(cfg)
	assert.Error(t, err)
}

func TestRunRenderToFile(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"page.pug": "div\n  include _nav.pug\n  p #{title}",
		"_nav.pug": "nav home",
	})

	renderOutput = filepath.Join(dir, "out", "page.html")
	renderVars = map[string]string{"title": "Hello"}

	cmd, _ := newTestCmd()
	require.NoError(t, runRender(cmd, []string{filepath.Join(dir, "page.pug")}))

	got, err := os.ReadFile(renderOutput)
	require.NoError(t, err)
	assert.Contains(t, string(got), "<nav>home</nav>")
	assert.Contains(t, string(got), "<p>Hello</p>")
	assert.True(t, strings.HasSuffix(string(got), "\n"))
	assert.True(t, htmlcheck.Balanced(string(got)))
}

func TestRunRenderStdin(t *testing.T) {
	resetFlags(t)

	cmd, out := newTestCmd()
	cmd.SetIn(strings.NewReader("p hi"))
	require.NoError(t, runRender(cmd, []string{"-"}))
	assert.Equal(t, "<p>hi</p>\n", out.String())
}

func TestRunRenderMissingInclude(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"page.pug": "div\n  include missing.pug"})

	cmd, _ := newTestCmd()
	err := runRender(cmd, []string{filepath.Join(dir, "page.pug")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.pug")
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()

	written, err := scaffold(dir, cfg, false)
	require.NoError(t, err)
	assert.Len(t, written, 3)
	for _, path := range written {
		assert.FileExists(t, path)
	}

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "indent_unit: 2")
	assert.Contains(t, string(data), "title: My pugar site")

	_, err = scaffold(dir, cfg, false)
	assert.ErrorContains(t, err, "already exists")

	_, err = scaffold(dir, cfg, true)
	assert.NoError(t, err)

	problems, err := checkFile(t.Context(), cfg.Render.Options(), filepath.Join(dir, "views", "index.pug"))
	require.NoError(t, err)
	assert.Empty(t, problems)
}

type fakePrompter struct {
	inputs   []string
	selects  []string
	confirms []bool
}

func (f *fakePrompter) Input(message, def string) (string, error) {
	v := f.inputs[0]
	f.inputs = f.inputs[1:]
	return v, nil
}

func (f *fakePrompter) Select(message string, options []string, def string) (string, error) {
	v := f.selects[0]
	f.selects = f.selects[1:]
	return v, nil
}

func (f *fakePrompter) Confirm(message string, def bool) (bool, error) {
	v := f.confirms[0]
	f.confirms = f.confirms[1:]
	return v, nil
}

func TestAskConfig(t *testing.T) {
	cfg := config.Default()
	p := &fakePrompter{
		inputs:   []string{"pages", "public", "4", "3000"},
		selects:  []string{"html", "sqlite"},
		confirms: []bool{true},
	}
	require.NoError(t, askConfig(p, cfg))

	assert.Equal(t, []string{"pages"}, cfg.Build.SourceDirs)
	assert.Equal(t, "public", cfg.Build.OutputDir)
	assert.Equal(t, 4, cfg.Render.IndentUnit)
	assert.Equal(t, "html", cfg.Render.Escape)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, config.BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 3000, cfg.Server.Port)

	bad := &fakePrompter{inputs: []string{"views", "dist", "zero"}}
	assert.Error(t, askConfig(bad, config.Default()))
}

func TestRunCheck(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.pug": "ul\n  li one\n  li two",
		"bad.pug":  "div\n  <section>",
	})

	cmd, out := newTestCmd()
	require.NoError(t, runCheck(cmd, []string{filepath.Join(dir, "good.pug")}))
	assert.Contains(t, out.String(), "✅")

	cmd, out = newTestCmd()
	err := runCheck(cmd, []string{filepath.Join(dir, "good.pug"), filepath.Join(dir, "bad.pug")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out.String(), "section")
}

func TestCacheStats(t *testing.T) {
	resetFlags(t)
	viper.Set("cache.dir", t.TempDir())

	cmd, out := newTestCmd()
	require.NoError(t, runCacheStats(cmd, nil))
	assert.Contains(t, out.String(), "Backend: file")
	assert.Contains(t, out.String(), "Entries: 0")

	cacheStatsFormat = "xml"
	assert.Error(t, runCacheStats(cmd, nil))

	cmd, out = newTestCmd()
	require.NoError(t, runCacheClean(cmd, nil))
	assert.Contains(t, out.String(), "Removed 0")
}

func TestVersionCommand(t *testing.T) {
	resetFlags(t)

	cmd, out := newTestCmd()
	require.NoError(t, runVersion(cmd, nil))
	assert.True(t, strings.HasPrefix(out.String(), "pugar "))

	versionFormat = "json"
	cmd, out = newTestCmd()
	require.NoError(t, runVersion(cmd, nil))
	assert.Contains(t, out.String(), `"name": "pugar"`)

	versionFormat = "yaml"
	assert.Error(t, runVersion(cmd, nil))
}

func TestSourceFor(t *testing.T) {
	src, ok := sourceFor([]string{"views", "pages"}, filepath.Join("pages", "blog", "post.pug"))
	require.True(t, ok)
	assert.Equal(t, "pages", src.Root)
	assert.Equal(t, "blog/post.pug", src.Rel)

	_, ok = sourceFor([]string{"views"}, filepath.Join("other", "x.pug"))
	assert.False(t, ok)
}
