package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

func TestRegisterRoot(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())

	if err := r.RegisterRoot(RootStart, "/work"); err != nil {
		t.Fatalf("RegisterRoot: %v", err)
	}

	got, err := r.Root(RootStart)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if got != "/work" {
		t.Fatalf("Root = %q, want /work", got)
	}

	if err := r.RegisterRoot(RootStart, "/other"); !errors.Is(err, ErrDuplicateRoot) {
		t.Fatalf("duplicate RegisterRoot = %v, want ErrDuplicateRoot", err)
	}
}

func TestRootUnknown(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())
	if _, err := r.Root("nope"); !errors.Is(err, ErrUnknownRoot) {
		t.Fatalf("Root = %v, want ErrUnknownRoot", err)
	}
}

func TestJoinIsPure(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())
	r.RegisterRoot(RootCache, "/cache")

	got, err := r.Join(RootCache, "git", "objects")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	want := filepath.Join("/cache", "git", "objects")
	if got != want {
		t.Fatalf("Join = %q, want %q", got, want)
	}
	if r.Exists(got) {
		t.Fatal("Join created the path on disk")
	}
}

func TestMkdTempCleanup(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())
	r.RegisterRoot(RootTmp, "/tmp_base")

	dir, err := r.MkdTemp(RootTmp, "scratch")
	if err != nil {
		t.Fatalf("MkdTemp: %v", err)
	}
	if !r.Exists(dir) {
		t.Fatalf("temp dir %q not created", dir)
	}

	if err := r.CleanupAll(); err != nil {
		t.Fatalf("CleanupAll: %v", err)
	}
	if r.Exists(dir) {
		t.Fatalf("temp dir %q survived cleanup", dir)
	}
}

func TestMksTempCleanup(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())
	r.RegisterRoot(RootTmp, "/tmp_base")

	path, err := r.MksTemp(RootTmp, "out")
	if err != nil {
		t.Fatalf("MksTemp: %v", err)
	}
	if !r.Exists(path) {
		t.Fatalf("temp file %q not created", path)
	}

	if err := r.CleanupAll(); err != nil {
		t.Fatalf("CleanupAll: %v", err)
	}
	if r.Exists(path) {
		t.Fatalf("temp file %q survived cleanup", path)
	}
}

func TestDeterministicTempNames(t *testing.T) {
	a := NewSimRegistry()
	a.RegisterRoot(RootTmp, "/tmp_base")
	b := NewSimRegistry()
	b.RegisterRoot(RootTmp, "/tmp_base")

	for i := 0; i < 3; i++ {
		pa, err := a.MkdTemp(RootTmp, "compile|link")
		if err != nil {
			t.Fatalf("MkdTemp a: %v", err)
		}
		pb, err := b.MkdTemp(RootTmp, "compile|link")
		if err != nil {
			t.Fatalf("MkdTemp b: %v", err)
		}
		if pa != pb {
			t.Fatalf("temp names diverged: %q vs %q", pa, pb)
		}
		if filepath.Base(pa) != filepath.Base(pb) || pa == "" {
			t.Fatalf("unexpected temp name %q", pa)
		}
	}
}

func TestReadWriteListDir(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())

	if err := r.WriteFile("/data/b.txt", []byte("bee")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := r.WriteFile("/data/a.txt", []byte("ay")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := r.ReadFile("/data/b.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "bee" {
		t.Fatalf("ReadFile = %q, want bee", data)
	}

	names, err := r.ListDir("/data")
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Fatalf("ListDir = %v, want [a.txt b.txt]", names)
	}
}

func TestCheckoutDirSlot(t *testing.T) {
	r := NewRegistry(afero.NewMemMapFs())

	if _, err := r.CheckoutDir(); !errors.Is(err, ErrCheckoutDirUnset) {
		t.Fatalf("read before write = %v, want ErrCheckoutDirUnset", err)
	}

	if err := r.SetCheckoutDir("/src"); err != nil {
		t.Fatalf("SetCheckoutDir: %v", err)
	}

	got, err := r.CheckoutDir()
	if err != nil {
		t.Fatalf("CheckoutDir: %v", err)
	}
	if got != "/src" {
		t.Fatalf("CheckoutDir = %q, want /src", got)
	}

	if err := r.SetCheckoutDir("/elsewhere"); !errors.Is(err, ErrCheckoutDirSet) {
		t.Fatalf("second write = %v, want ErrCheckoutDirSet", err)
	}

	warnings := r.Warnings()
	if len(warnings) != 1 || warnings[0] != "deprecated-checkout-dir" {
		t.Fatalf("Warnings = %v, want [deprecated-checkout-dir]", warnings)
	}
}

func TestResourceRoot(t *testing.T) {
	if got := ResourceRoot("git"); got != "resource/git" {
		t.Fatalf("ResourceRoot = %q, want resource/git", got)
	}
}
