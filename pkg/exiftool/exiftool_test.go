package exiftool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeTool 在临时目录写一个假的 exiftool 脚本
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("需要 /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "exiftool")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake tool: %v", err)
	}
	return path
}

func TestFormatParse_RoundTrip(t *testing.T) {
	testCases := []time.Time{
		time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC),
		time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2020, time.February, 29, 0, 0, 1, 0, time.UTC),
		time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, want := range testCases {
		t.Run(want.String(), func(t *testing.T) {
			s := FormatTimestamp(want)
			got, err := ParseTimestamp(s)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) error = %v", s, err)
			}
			if !got.Equal(want) {
				t.Errorf("round trip = %v, want %v", got, want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2023, time.May, 1, 12, 3, 4, 500*int(time.Millisecond), time.UTC)
	if got := FormatTimestamp(ts); got != "2023:05:01 12:03:04" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, s := range []string{"", "2023-05-01 12:00:00", "2023:13:01 00:00:00"} {
		if _, err := ParseTimestamp(s); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error", s)
		}
	}
}

func TestArgs(t *testing.T) {
	ts := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	got := strings.Join(Args("/x/a.jpg", ts), "|")
	want := "-overwrite_original|-DateTimeOriginal=2023:05:01 00:00:00|-AllDates=2023:05:01 00:00:00|" +
		"-CreationTime=2023:05:01 00:00:00|-ModifyDate=2023:05:01 00:00:00|/x/a.jpg"
	if got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}
}

func TestWrite_Success(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	tool := New(fakeTool(t, fmt.Sprintf(`printf '%%s\n' "$@" > %q`, out)))

	ts := time.Date(2023, time.May, 1, 12, 0, 0, 0, time.UTC)
	if err := tool.Write(context.Background(), "/x/a.jpg", ts); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "-AllDates=2023:05:01 12:00:00") {
		t.Errorf("tool did not receive timestamp, got %q", string(data))
	}
}

func TestWrite_Failure(t *testing.T) {
	tool := New(fakeTool(t, `echo "Error: Not a valid JPG (looks more like a RIFF) - $6" >&2; exit 1`))

	err := tool.Write(context.Background(), "/x/a.jpg", time.Now())
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Write() error = %v, want *WriteError", err)
	}
	if we.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", we.ExitCode)
	}
	if !strings.Contains(we.Reason, "/x/a.jpg") {
		t.Errorf("Reason = %q", we.Reason)
	}
	if !IsRIFF(err) {
		t.Error("IsRIFF() = false, want true")
	}
}

func TestWrite_FailureWithoutStderr(t *testing.T) {
	tool := New(fakeTool(t, `exit 3`))

	err := tool.Write(context.Background(), "/x/a.jpg", time.Now())
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Write() error = %v, want *WriteError", err)
	}
	if we.ExitCode != 3 || we.Reason == "" {
		t.Errorf("WriteError = %+v", we)
	}
	if IsRIFF(err) {
		t.Error("IsRIFF() = true, want false")
	}
}

func TestWrite_MissingBinary(t *testing.T) {
	tool := New(filepath.Join(t.TempDir(), "no-such-tool"))

	err := tool.Write(context.Background(), "/x/a.jpg", time.Now())
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("Write() error = %v, want *WriteError", err)
	}
	if we.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", we.ExitCode)
	}
}

func TestWrite_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := filepath.Join(t.TempDir(), "called")
	tool := New(fakeTool(t, fmt.Sprintf("touch %q", called)))
	if err := tool.Write(ctx, "/x/a.jpg", time.Now()); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if _, err := os.Stat(called); err == nil {
		t.Error("tool should not run after cancellation")
	}
}

func TestLookPath(t *testing.T) {
	if _, err := LookPath(fakeTool(t, "exit 0")); err != nil {
		t.Errorf("LookPath() error = %v", err)
	}
	if _, err := LookPath(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing tool")
	}
}

func TestIsRIFF_OtherErrors(t *testing.T) {
	if IsRIFF(nil) || IsRIFF(errors.New("looks more like a RIFF")) {
		t.Error("IsRIFF should only accept *WriteError")
	}
}

func TestDryRun(t *testing.T) {
	var w Writer = DryRun{}
	if err := w.Write(context.Background(), "/x/a.jpg", time.Now()); err != nil {
		t.Errorf("DryRun.Write() error = %v", err)
	}
}
