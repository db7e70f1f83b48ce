package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/editor"
	"github.com/vk/flowgrid/internal/testutil"
	"github.com/vk/flowgrid/internal/validation"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFormat_Canonicalises(t *testing.T) {
	a, _ := SetupAppTest(t, config.Default())
	ctx := testContext(t)

	text := testutil.Unindent(`
		node "http" "in" { port = 9000 }
		node "log" "out" {}
		link "in" "out" {}
	`)
	out, err := a.Format(ctx, text)
	require.NoError(t, err)
	assert.Contains(t, out, `node "http" "in" {`)
	assert.Contains(t, out, `port = "9000"`)
	assert.Contains(t, out, `link "in" "out" {`)

	again, err := a.Format(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, out, again, "formatting is idempotent")
}

func TestFormat_SyntaxError(t *testing.T) {
	a, _ := SetupAppTest(t, config.Default())

	_, err := a.Format(testContext(t), `node "http" {`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text to graph")
}

func TestFormat_ExtraManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.hcl"), []byte(testutil.Unindent(`
		element "sink" "kafka" {
		  property "topic" {}
		}
	`)), 0o600))

	cfg := config.Default()
	cfg.ManifestPaths = []string{dir}
	a, _ := SetupAppTest(t, cfg)

	markers, err := a.Validate(testContext(t), "node \"kafka\" \"k\" {\n  topic = \"t\"\n}\n")
	require.NoError(t, err)
	assert.Empty(t, markers["k"], "elements from manifest paths resolve")
}

func TestValidate_ReportsMarkers(t *testing.T) {
	a, _ := SetupAppTest(t, config.Default())
	ctx := testContext(t)

	markers, err := a.Validate(ctx, "node \"file\" \"src\" {}\nnode \"log\" \"out\" {}\nlink \"src\" \"out\" {}\n")
	require.NoError(t, err)
	require.NotEmpty(t, markers["src"])
	var messages []string
	for _, m := range markers["src"] {
		messages = append(messages, m.Message)
	}
	assert.Contains(t, messages, "directory must be set")

	markers, err = a.Validate(ctx, `node "http" {`)
	require.NoError(t, err, "parse errors are markers")
	assert.NotEmpty(t, markers[validation.DocumentID])
	assert.True(t, markers.HasErrors())
}

func TestHealthMux(t *testing.T) {
	a, _ := SetupAppTest(t, config.Default())
	a.Metrics().RecordTopologyOperation("insert", "ok")
	mux := a.healthMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowgrid_topology_operations_total")
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.TextPath = filepath.Join(t.TempDir(), "flow.hcl")
	require.NoError(t, os.WriteFile(cfg.TextPath, []byte("node \"log\" \"out\" {}\n"), 0o600))
	a, logs := SetupAppTest(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Session ready.")
	}, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestTextWriter_SavesLatest(t *testing.T) {
	a, _ := SetupAppTest(t, config.Default())
	path := filepath.Join(t.TempDir(), "flow.hcl")
	w := newTextWriter(path, a)

	w.observe(editor.Notification{Kind: editor.TextChanged, Text: "first"})
	w.observe(editor.Notification{Kind: editor.TextChanged, Text: "second"})
	w.observe(editor.Notification{Kind: editor.MarkersChanged})
	w.flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
