package server

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/scriptlet/internal/cache"
	"github.com/conneroisu/scriptlet/internal/compiler"
	"github.com/conneroisu/scriptlet/internal/logging"
	"github.com/conneroisu/scriptlet/internal/parser"
	"github.com/conneroisu/scriptlet/internal/runtime"
	"github.com/conneroisu/scriptlet/internal/security"
	"github.com/conneroisu/scriptlet/internal/store"
)

func newTestServer(t *testing.T, templates map[string]string) *Server {
	t.Helper()

	root := t.TempDir()
	for name, body := range templates {
		path := filepath.Join(root, name+".tpl")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	st := store.NewDirStore(root)
	rt := runtime.New(
		st,
		parser.New(),
		compiler.New(security.NewPolicy(), st),
		cache.New(cache.NewMemory(), nil),
		logging.NewNopLogger(),
		runtime.Options{Enabled: true},
	)
	return New(rt, st, logging.NewNopLogger(), "127.0.0.1", 0)
}

func TestIndexListsTemplates(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"header": "<h1>hi</h1>",
		"footer": "<p>bye</p>",
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `/templates/header`)
	assert.Contains(t, body, `/templates/footer`)
	assert.Contains(t, body, "WebSocket", "reload script should be injected")
}

func TestTemplatePreviewResolvesConstructs(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"page": `<if $x then>{= strlen($x) }</if>`,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/templates/page", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `(($x) ? ((strlen($x))) : (""))`)
}

func TestTemplateNotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/templates/missing", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestInjectReloadScriptBeforeBodyClose(t *testing.T) {
	doc := "<html><body><p>content</p></body></html>"
	out := injectReloadScript(doc)

	scriptAt := strings.Index(out, "<script>")
	bodyCloseAt := strings.Index(out, "</body>")
	require.GreaterOrEqual(t, scriptAt, 0)
	require.GreaterOrEqual(t, bodyCloseAt, 0)
	assert.Less(t, scriptAt, bodyCloseAt)
	assert.Contains(t, out, "<p>content</p>")
}

func TestInjectReloadScriptIgnoresBodyCloseInScript(t *testing.T) {
	doc := `<html><body><script>var s = "</body>";</script><p>x</p></body></html>`
	out := injectReloadScript(doc)

	// The splice point is the real closing tag, after the paragraph.
	assert.Less(t, strings.Index(out, "<p>x</p>"), strings.Index(out, "WebSocket"))
}

func TestInjectReloadScriptFragmentAppends(t *testing.T) {
	out := injectReloadScript("just a fragment")
	assert.True(t, strings.HasPrefix(out, "just a fragment"))
	assert.Contains(t, out, "WebSocket")
}

func TestBroadcastDropsNothingWhenEmpty(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.broadcast(context.Background(), "reload")
	assert.Equal(t, 0, srv.ClientCount())
}
