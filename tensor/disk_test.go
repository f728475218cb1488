package tensor

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestStore(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	store, err := NewStore(filepath.Join(dir, "t.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer store.Close()

	a := randTensor(2, 3, 4)
	if err := store.Put("psi/1", a); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := store.Get("psi/1")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !slices.Equal(got.Shape(), a.Shape()) {
		t.Fatalf("%#v %#v", got.Shape(), a.Shape())
	}
	if !slices.Equal(got.Data(), a.Data()) {
		t.Fatalf("%#v", got.Data())
	}

	// Put overwrites.
	b := randTensor(5)
	if err := store.Put("psi/1", b); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err = store.Get("psi/1")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !slices.Equal(got.Shape(), []int{5}) {
		t.Fatalf("%#v", got.Shape())
	}

	if err := store.Delete("psi/1"); err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := store.Get("psi/1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStoreClose(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	fpath := filepath.Join(dir, "t.db")
	store, err := NewStore(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := store.Put("k", randTensor(2)); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("%+v", err)
	}
	// Close removes the backing file.
	if _, err := os.Stat(fpath); err == nil {
		t.Fatalf("file still exists")
	}
}
