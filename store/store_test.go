package store

import (
	"context"
	"os"
	"testing"
)

func newTestEngines(t *testing.T) map[string]Engine {
	t.Helper()
	f, err := os.CreateTemp("", "triage-kv-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	sq, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Engine{
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func TestKV_PutGetDelete(t *testing.T) {
	for name, eng := range newTestEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := eng.Namespace("q1")

			if err := kv.Put(ctx, "task:a", []byte(`{"id":"a"}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := kv.Get(ctx, "task:a")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"id":"a"}` {
				t.Errorf("Get = %q, want %q", got, `{"id":"a"}`)
			}

			// Whole-record replace
			if err := kv.Put(ctx, "task:a", []byte(`{"id":"a","v":2}`)); err != nil {
				t.Fatalf("Put replace: %v", err)
			}
			got, err = kv.Get(ctx, "task:a")
			if err != nil {
				t.Fatalf("Get after replace: %v", err)
			}
			if string(got) != `{"id":"a","v":2}` {
				t.Errorf("Get after replace = %q", got)
			}

			if err := kv.Delete(ctx, "task:a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			got, err = kv.Get(ctx, "task:a")
			if err != nil {
				t.Fatalf("Get after delete: %v", err)
			}
			if got != nil {
				t.Errorf("Get after delete = %q, want nil", got)
			}
		})
	}
}

func TestKV_ListByPrefix(t *testing.T) {
	for name, eng := range newTestEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := eng.Namespace("q1")

			pairs := map[string]string{
				"task:b":     "2",
				"task:a":     "1",
				"feedback:x": "3",
			}
			for k, v := range pairs {
				if err := kv.Put(ctx, k, []byte(v)); err != nil {
					t.Fatalf("Put %s: %v", k, err)
				}
			}

			tasks, err := kv.List(ctx, "task:")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(tasks) != 2 {
				t.Fatalf("List task: got %d records, want 2", len(tasks))
			}
			if tasks[0].Key != "task:a" || tasks[1].Key != "task:b" {
				t.Errorf("List order = %q, %q", tasks[0].Key, tasks[1].Key)
			}

			all, err := kv.List(ctx, "")
			if err != nil {
				t.Fatalf("List all: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("List all: got %d, want 3", len(all))
			}
		})
	}
}

func TestKV_NamespaceIsolation(t *testing.T) {
	for name, eng := range newTestEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := eng.Namespace("a")
			b := eng.Namespace("b")

			if err := a.Put(ctx, "task:1", []byte("a")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := b.Get(ctx, "task:1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != nil {
				t.Errorf("namespace b sees key from a: %q", got)
			}
		})
	}
}
