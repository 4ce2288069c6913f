package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moyu-x/mediastamp/internal"
	"github.com/moyu-x/mediastamp/pkg/hasher"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return j, dbPath
}

type mapHasher map[string]uint64

func (m mapHasher) Sum(path string) (uint64, error) {
	sum, ok := m[path]
	if !ok {
		return 0, errors.New("not found")
	}
	return sum, nil
}

func TestOpen(t *testing.T) {
	j, dbPath := openTemp(t)
	defer j.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestRecord_WithoutBegin(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	if err := j.Record(internal.Outcome{}); !errors.Is(err, ErrNoRun) {
		t.Errorf("Record() error = %v, want ErrNoRun", err)
	}
	if err := j.Finish(internal.Summary{}); !errors.Is(err, ErrNoRun) {
		t.Errorf("Finish() error = %v, want ErrNoRun", err)
	}
}

func TestBeginRecordFinish(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	id, err := j.Begin([]string{"/m", "/n"}, 4, false)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if len(id) != 36 || j.RunID() != id {
		t.Errorf("unexpected run id %q", id)
	}

	outcomes := []internal.Outcome{
		{
			File:      internal.CandidateFile{Path: "/m/230501 0042.jpg"},
			Kind:      internal.KindUpdated,
			Pattern:   "yymmdd-space",
			Timestamp: time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC),
			Hash:      0xabc,
		},
		{
			File:   internal.CandidateFile{Path: "/m/not_a_match.jpg"},
			Kind:   internal.KindNoPatternMatch,
			Reason: "no pattern matched",
		},
	}
	for _, o := range outcomes {
		if err := j.Record(o); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	s := internal.Summary{Total: 2, Updated: 1, NoPatternMatch: 1, EndTime: time.Now()}
	if err := j.Finish(s); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	runs, err := j.Runs(10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Total != 2 || r.Updated != 1 || r.NoPatternMatch != 1 || r.FinishedAt == nil || r.Directories != "/m,/n" {
		t.Errorf("run = %+v", r)
	}

	entries, err := j.Entries(id)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Hash != hasher.Format(0xabc) || entries[0].Timestamp == nil {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[1].Kind != "NoPatternMatch" || entries[1].Timestamp != nil {
		t.Errorf("entry = %+v", entries[1])
	}
}

func TestFilter_Resume(t *testing.T) {
	j, dbPath := openTemp(t)

	if _, err := j.Begin([]string{"/m"}, 1, false); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/a.jpg"}, Kind: internal.KindUpdated, Hash: 1})
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/b.jpg"}, Kind: internal.KindUpdated, Hash: 2})
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/c.jpg"}, Kind: internal.KindWriteFailed})
	j.Close()

	// 重新打开，模拟下一次运行
	j, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer j.Close()

	files := []internal.CandidateFile{
		{Path: "/m/a.jpg"}, // 未变化
		{Path: "/m/b.jpg"}, // 内容已变
		{Path: "/m/c.jpg"}, // 上次失败
		{Path: "/m/d.jpg"}, // 新文件
	}
	h := mapHasher{"/m/a.jpg": 1, "/m/b.jpg": 99, "/m/c.jpg": 3}

	kept, skipped, err := j.Filter(files, h)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(kept) != 3 || kept[0].Path != "/m/b.jpg" {
		t.Errorf("kept = %+v", kept)
	}
}

func TestFilter_LatestEntryWins(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	j.Begin([]string{"/m"}, 1, false)
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/a.jpg"}, Kind: internal.KindUpdated, Hash: 1})
	j.Begin([]string{"/m"}, 1, false)
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/a.jpg"}, Kind: internal.KindUpdated, Hash: 5})

	kept, skipped, err := j.Filter([]internal.CandidateFile{{Path: "/m/a.jpg"}}, mapHasher{"/m/a.jpg": 5})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if skipped != 1 || len(kept) != 0 {
		t.Errorf("kept = %+v, skipped = %d", kept, skipped)
	}
}

func TestFilter_IgnoresDryRun(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	j.Begin([]string{"/m"}, 1, true)
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/a.jpg"}, Kind: internal.KindUpdated, Hash: 1})

	stamped, err := j.Stamped()
	if err != nil {
		t.Fatalf("Stamped() error = %v", err)
	}
	if len(stamped) != 0 {
		t.Errorf("dry-run 记录不应视为已写入, got %v", stamped)
	}

	kept, skipped, err := j.Filter([]internal.CandidateFile{{Path: "/m/a.jpg"}}, mapHasher{"/m/a.jpg": 1})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if skipped != 0 || len(kept) != 1 {
		t.Errorf("kept = %+v, skipped = %d", kept, skipped)
	}

	// 之后的真实写入仍然生效
	j.Begin([]string{"/m"}, 1, false)
	j.Record(internal.Outcome{File: internal.CandidateFile{Path: "/m/a.jpg"}, Kind: internal.KindUpdated, Hash: 1})
	stamped, _ = j.Stamped()
	if stamped["/m/a.jpg"] != hasher.Format(1) {
		t.Errorf("stamped = %v", stamped)
	}
}

func TestFilter_EmptyJournal(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	files := []internal.CandidateFile{{Path: "/m/a.jpg"}}
	kept, skipped, err := j.Filter(files, mapHasher{})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if skipped != 0 || len(kept) != 1 {
		t.Errorf("kept = %+v, skipped = %d", kept, skipped)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/x.db")
	if err != nil || got != filepath.Join(home, "x.db") {
		t.Errorf("expandPath() = %q, %v", got, err)
	}
	if got, _ := expandPath("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("expandPath() = %q", got)
	}
}
