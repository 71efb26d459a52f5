package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEditorHooks{}
	e.OnSave(ctx, "Intro", 4, time.Second, nil)
	e.OnLoad(ctx, "Intro", 4, time.Second, errors.New("boom"))
	e.OnCommand(ctx, "add_node", nil)

	NoopStoreHooks{}.OnStoreOp(ctx, "file", "save", time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "render")
	c.OnCacheMiss(ctx, "render")
	c.OnCacheSet(ctx, "render", 1024)

	r := NoopRenderHooks{}
	r.OnRenderStart(ctx, "svg", 5)
	r.OnRenderComplete(ctx, "svg", time.Second, nil)

	NoopHTTPHooks{}.OnResponse(ctx, "GET", "/dialogues", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Editor().(NoopEditorHooks); !ok {
		t.Error("Editor() should return NoopEditorHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customEditor := &testEditorHooks{}
	SetEditorHooks(customEditor)
	if Editor() != customEditor {
		t.Error("SetEditorHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	m := NewMetrics("test")
	Register(m)
	if Store() != StoreHooks(m) || Render() != RenderHooks(m) || HTTP() != HTTPHooks(m) {
		t.Error("Register should install metrics for every category")
	}

	Reset()
	if _, ok := Editor().(NoopEditorHooks); !ok {
		t.Error("Reset() should restore NoopEditorHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testEditorHooks{}
	SetEditorHooks(custom)
	SetEditorHooks(nil)

	if Editor() != custom {
		t.Error("SetEditorHooks(nil) should be ignored")
	}

	Reset()
}

func TestMetricsCount(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics("test")

	m.OnSave(ctx, "a", 3, time.Millisecond, nil)
	m.OnSave(ctx, "b", 0, time.Millisecond, errors.New("disk full"))
	m.OnStoreOp(ctx, "redis", "load", time.Millisecond, nil)
	m.OnCacheHit(ctx, "render")
	m.OnCacheHit(ctx, "render")
	m.OnCommand(ctx, "connect", nil)
	m.OnResponse(ctx, "GET", "/dialogues/{name}", 404, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"saves ok", testutil.ToFloat64(m.saves.WithLabelValues("ok")), 1},
		{"saves error", testutil.ToFloat64(m.saves.WithLabelValues("error")), 1},
		{"store ops", testutil.ToFloat64(m.storeOps.WithLabelValues("redis", "load", "ok")), 1},
		{"cache hits", testutil.ToFloat64(m.cacheHits.WithLabelValues("render")), 2},
		{"commands", testutil.ToFloat64(m.commands.WithLabelValues("connect", "ok")), 1},
		{"http", testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/dialogues/{name}", "404")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("nodedialogue")
	m.OnRenderComplete(context.Background(), "svg", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `nodedialogue_renders_total{format="svg",status="ok"} 1`) {
		t.Errorf("renders counter missing from exposition:\n%s", rec.Body.String())
	}
}

// Test implementations
type testEditorHooks struct{ NoopEditorHooks }
type testCacheHooks struct{ NoopCacheHooks }
