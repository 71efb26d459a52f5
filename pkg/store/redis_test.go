package store

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/cyrogem/nodedialogue/internal/redistest"
)

func newTestRedisStore(t *testing.T, prefix string) *RedisStore {
	t.Helper()
	srv := redistest.Start(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, prefix, "")
}

func TestRedisStoreKeys(t *testing.T) {
	ctx := context.Background()
	srv := redistest.Start(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = client.Close() })

	s := New(NewRedisStore(client, "test:dlg:", "abc123"))
	for range 2 {
		if _, err := s.Save(ctx, "Intro", testGraph(t, "Intro")); err != nil {
			t.Fatal(err)
		}
	}
	// A key outside the prefix is not a dialogue.
	if err := client.Set(ctx, "other:Intro", "x", 0).Err(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key    string
		prefix string
	}{
		{"test:dlg:Intro", "%YAML 1.1"},
		{"test:dlg:Intro (1)", "%YAML 1.1"},
	}
	for _, tt := range tests {
		v, ok := srv.Value(tt.key)
		if !ok {
			t.Errorf("missing key %q (have %v)", tt.key, srv.Keys())
			continue
		}
		if !strings.HasPrefix(v, tt.prefix) || !strings.Contains(v, "guid: abc123") {
			t.Errorf("%s holds:\n%s", tt.key, v)
		}
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Intro", "Intro (1)"}; !slices.Equal(names, want) {
		t.Errorf("List = %v, want %v", names, want)
	}
}

func TestDialRedisStore(t *testing.T) {
	ctx := context.Background()
	srv := redistest.Start(t)

	b, err := DialRedisStore(ctx, RedisConfig{Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("DialRedisStore: %v", err)
	}
	if _, err := New(b).Save(ctx, "Intro", testGraph(t, "Intro")); err != nil {
		t.Fatal(err)
	}
	if _, ok := srv.Value(DefaultRedisPrefix + "Intro"); !ok {
		t.Errorf("keys = %v, want %sIntro", srv.Keys(), DefaultRedisPrefix)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.List(ctx); err == nil {
		t.Error("List after Close succeeded; dialed client should be closed")
	}
}
