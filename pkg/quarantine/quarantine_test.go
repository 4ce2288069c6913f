package quarantine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

func TestMove(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/m/a.jpg", []byte("a"), 0644)

	m := New(fs, "/q")
	dst, err := m.Move("/m/a.jpg", BucketRIFF)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if dst != "/q/riff/a.jpg" {
		t.Errorf("Move() = %s, want /q/riff/a.jpg", dst)
	}

	if exists, _ := afero.Exists(fs, "/m/a.jpg"); exists {
		t.Error("source should be removed")
	}
	data, err := afero.ReadFile(fs, dst)
	if err != nil || string(data) != "a" {
		t.Errorf("destination content = %q, err = %v", data, err)
	}
}

func TestMove_Collision(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/q/failed/a.jpg", []byte("old"), 0644)
	afero.WriteFile(fs, "/q/failed/a_1.jpg", []byte("old"), 0644)
	afero.WriteFile(fs, "/m/a.jpg", []byte("new"), 0644)

	dst, err := New(fs, "/q").Move("/m/a.jpg", BucketFailed)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if dst != "/q/failed/a_2.jpg" {
		t.Errorf("Move() = %s, want /q/failed/a_2.jpg", dst)
	}
}

func TestMove_Concurrent(t *testing.T) {
	fs := afero.NewMemMapFs()
	const n = 20
	for i := 0; i < n; i++ {
		dir := filepath.Join("/m", string(rune('a'+i)))
		afero.WriteFile(fs, filepath.Join(dir, "same.jpg"), []byte(dir), 0644)
	}

	m := New(fs, "/q")
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dst, err := m.Move(filepath.Join("/m", string(rune('a'+i)), "same.jpg"), BucketFailed)
			if err != nil {
				t.Errorf("Move() error = %v", err)
				return
			}
			results <- dst
		}(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for dst := range results {
		if seen[dst] {
			t.Errorf("duplicate destination %s", dst)
		}
		seen[dst] = true
	}
	if len(seen) != n {
		t.Errorf("Expected %d destinations, got %d", n, len(seen))
	}
}

// renameFailFs 模拟跨卷移动时 rename 失败
type renameFailFs struct {
	afero.Fs
}

func (renameFailFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errors.New("invalid cross-device link")}
}

func TestMove_CopyFallback(t *testing.T) {
	base := afero.NewMemMapFs()
	afero.WriteFile(base, "/m/a.jpg", []byte("content"), 0644)

	dst, err := New(renameFailFs{base}, "/q").Move("/m/a.jpg", BucketFailed)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	data, _ := afero.ReadFile(base, dst)
	if string(data) != "content" {
		t.Errorf("copied content = %q", data)
	}
	if exists, _ := afero.Exists(base, "/m/a.jpg"); exists {
		t.Error("source should be removed after copy")
	}
}

func TestMove_MissingSource(t *testing.T) {
	if _, err := New(afero.NewMemMapFs(), "/q").Move("/m/none.jpg", BucketFailed); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestDirs(t *testing.T) {
	dirs := New(nil, "/q").Dirs()
	if len(dirs) != 2 || dirs[0] != "/q/riff" || dirs[1] != "/q/failed" {
		t.Errorf("Dirs() = %v", dirs)
	}
}
