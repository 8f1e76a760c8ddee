package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/arkdb/store"
)

func localConfig(t *testing.T, name string) store.Config {
	t.Helper()
	cfg := store.DefaultConfig()
	cfg.FileName = filepath.Join(t.TempDir(), name)
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestNewLocal_CreatesFile(t *testing.T) {
	cfg := localConfig(t, "fresh")
	s, err := store.NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if !strings.HasSuffix(s.Path(), "fresh.json") {
		t.Errorf("expected .json to be appended, got %q", s.Path())
	}
	if got := readFile(t, s.Path()); got != "{}" {
		t.Errorf("expected file initialized with {}, got %q", got)
	}
}

func TestNewLocal_KeepsJSONExtension(t *testing.T) {
	cfg := localConfig(t, "named.json")
	s, err := store.NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if filepath.Base(s.Path()) != "named.json" {
		t.Errorf("expected named.json, got %q", s.Path())
	}
}

func TestNewLocal_RelativeToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := store.DefaultConfig()
	s, err := store.NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	want, err := filepath.EvalSymlinks(filepath.Join(dir, "arkdb.json"))
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	got, err := filepath.EvalSymlinks(s.Path())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNewLocal_LoadsExistingFile(t *testing.T) {
	cfg := localConfig(t, "existing.json")
	if err := os.WriteFile(cfg.FileName, []byte(`{"a":{"b":[1,2]}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := store.NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	got, err := s.Get(context.Background(), "a.b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff([]any{float64(1), float64(2)}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNewLocal_EmptyFileIsEmptyTree(t *testing.T) {
	cfg := localConfig(t, "empty.json")
	if err := os.WriteFile(cfg.FileName, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := store.NewLocal(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	entries, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty tree, got %v", entries)
	}
}

func TestNewLocal_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"a":`},
		{"array", `[1,2]`},
		{"scalar", `"text"`},
		{"trailing data", `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := localConfig(t, "bad.json")
			if err := os.WriteFile(cfg.FileName, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := store.NewLocal(context.Background(), cfg)
			if !errors.Is(err, store.ErrMalformedMedium) {
				t.Errorf("expected ErrMalformedMedium, got %v", err)
			}
			if got := readFile(t, cfg.FileName); got != tt.content {
				t.Errorf("expected malformed file to be left alone, got %q", got)
			}
		})
	}
}

func TestLocal_TwoHandlesSameFile(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, "shared")

	first, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	second, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, s := range []*store.Local{first, second} {
		entries, err := s.All(ctx)
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty store, got %v", entries)
		}
	}

	if _, err := first.Set(ctx, "greeting", "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	third, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	got, err := third.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected new handle to observe flushed value, got %v", got)
	}
}

func TestLocal_EveryMutationFlushes(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, "durable")
	s, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	steps := []struct {
		name     string
		mutate   func() error
		expected string
	}{
		{"set", func() error { _, err := s.Set(ctx, "a.b", 1); return err }, `{"a":{"b":1}}`},
		{"add", func() error { _, err := s.Add(ctx, "n", 2); return err }, `{"a":{"b":1},"n":2}`},
		{"subtract", func() error { _, err := s.Subtract(ctx, "n", 1); return err }, `{"a":{"b":1},"n":1}`},
		{"push", func() error { _, err := s.Push(ctx, "l", "x"); return err }, `{"a":{"b":1},"l":["x"],"n":1}`},
		{"pull", func() error { _, err := s.Pull(ctx, "l", "x"); return err }, `{"a":{"b":1},"l":[],"n":1}`},
		{"delete", func() error { _, err := s.Delete(ctx, "a.b"); return err }, `{"a":{},"l":[],"n":1}`},
		{"clear", func() error { return s.Clear(ctx) }, `{}`},
	}

	for _, step := range steps {
		if err := step.mutate(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := readFile(t, s.Path()); got != step.expected {
			t.Errorf("%s: expected file %s, got %s", step.name, step.expected, got)
		}
	}
}

func TestLocal_WithoutWrite(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocal(ctx, localConfig(t, "stale"))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if _, err := s.Set(ctx, "a", 1, store.WithoutWrite()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := s.Get(ctx, "a"); got != float64(1) {
		t.Errorf("expected in-memory value 1, got %v", got)
	}
	if got := readFile(t, s.Path()); got != "{}" {
		t.Errorf("expected file to stay stale, got %q", got)
	}

	if _, err := s.Delete(ctx, "missing", store.WithoutWrite()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := readFile(t, s.Path()); got != "{}" {
		t.Errorf("expected file to stay stale, got %q", got)
	}

	if _, err := s.Set(ctx, "b", 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readFile(t, s.Path()); got != `{"a":1,"b":2}` {
		t.Errorf("expected next flush to catch up, got %q", got)
	}
}

func TestLocal_Flush(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocal(ctx, localConfig(t, "flush"))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := s.Push(ctx, "l", true, store.WithoutWrite()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := readFile(t, s.Path()); got != `{"l":[true]}` {
		t.Errorf("expected flushed tree, got %q", got)
	}
}

func TestLocal_Pretty(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewLocal(ctx, localConfig(t, "pretty"))
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if _, err := s.Set(ctx, "a", 1, store.Pretty(true)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readFile(t, s.Path()); got != "{\n  \"a\": 1\n}" {
		t.Errorf("expected indented file, got %q", got)
	}

	if _, err := s.Set(ctx, "a", 2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readFile(t, s.Path()); got != `{"a":2}` {
		t.Errorf("expected compact file, got %q", got)
	}
}

func TestLocal_PrettyByDefault(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, "pretty-default")
	cfg.Pretty = true
	s, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if _, err := s.Set(ctx, "a", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readFile(t, s.Path()); got != "{\n  \"a\": 1\n}" {
		t.Errorf("expected indented file, got %q", got)
	}
	if _, err := s.Set(ctx, "a", 1, store.Pretty(false)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := readFile(t, s.Path()); got != `{"a":1}` {
		t.Errorf("expected per-call override to compact the file, got %q", got)
	}
}

func TestLocal_Reload(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, "reload")
	s, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	if err := os.WriteFile(s.Path(), []byte(`{"external":true}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, _ := s.Get(ctx, "external"); got != nil {
		t.Errorf("expected stale in-memory tree before Reload, got %v", got)
	}
	if err := s.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got, _ := s.Get(ctx, "external"); got != true {
		t.Errorf("expected reloaded value, got %v", got)
	}

	if err := os.WriteFile(s.Path(), []byte(`nope`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Reload(ctx); !errors.Is(err, store.ErrMalformedMedium) {
		t.Errorf("expected ErrMalformedMedium, got %v", err)
	}
	if got, _ := s.Get(ctx, "external"); got != true {
		t.Errorf("expected failed Reload to keep the tree, got %v", got)
	}
}

func TestLocal_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t, "tidy")
	s, err := store.NewLocal(ctx, cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.Add(ctx, "n", 1); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the store file, got %v", names)
	}
}
