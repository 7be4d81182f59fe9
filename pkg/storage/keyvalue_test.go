package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "secure"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return fs
}

func TestFileStore_PutGet(t *testing.T) {
	fs := newTestFileStore(t)

	blob := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := fs.Put("ns/alice", blob); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := fs.Get("ns/alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("got %x, want %x", got, blob)
	}
}

func TestFileStore_PutOverwrites(t *testing.T) {
	fs := newTestFileStore(t)

	if err := fs.Put("k", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := fs.Put("k", []byte("second")); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := fs.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	fs := newTestFileStore(t)

	_, err := fs.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want %v", err, ErrNotFound)
	}
}

func TestFileStore_Delete(t *testing.T) {
	fs := newTestFileStore(t)

	if err := fs.Put("k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := fs.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fs.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: error = %v, want %v", err, ErrNotFound)
	}
	if err := fs.Delete("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: error = %v, want %v", err, ErrNotFound)
	}
}

func TestFileStore_ListKeysPrefix(t *testing.T) {
	fs := newTestFileStore(t)

	for _, k := range []string{"a/1", "a/2", "b/1"} {
		if err := fs.Put(k, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	keys, err := fs.ListKeys("a/")
	if err != nil {
		t.Fatalf("listkeys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a/1" || keys[1] != "a/2" {
		t.Errorf("keys = %v, want [a/1 a/2]", keys)
	}
}

func TestFileStore_KeysCannotEscapeDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secure")
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	if err := fs.Put("../../escape", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file inside the store directory, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "..", "escape.bin")); err == nil {
		t.Error("key escaped the store directory")
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "secure")
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := fs.Put("k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("dir perm = %o, want 0700", perm)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	finfo, err := entries[0].Info()
	if err != nil {
		t.Fatalf("file info: %v", err)
	}
	if perm := finfo.Mode().Perm(); perm != 0600 {
		t.Errorf("file perm = %o, want 0600", perm)
	}
}
