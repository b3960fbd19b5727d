package storage

import (
	"io"
	"strings"
	"testing"
)

func TestSheetKeyFlattensPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
		bad  bool
	}{
		{in: "scan001.pdf", want: "sessions/7/scan001.pdf"},
		{in: "../../etc/passwd", want: "sessions/7/passwd"},
		{in: `C:\scans\scan002.pdf`, want: "sessions/7/scan002.pdf"},
		{in: "", bad: true},
		{in: "..", bad: true},
	}
	for _, c := range cases {
		got, err := SheetKey(7, c.in)
		if c.bad {
			if err == nil {
				t.Errorf("SheetKey(%q) accepted, want error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("SheetKey(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("SheetKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFSSheetStoreRoundTrip(t *testing.T) {
	store, err := NewFSSheetStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSSheetStore: %v", err)
	}

	key, err := store.Put(42, "scan001.pdf", strings.NewReader("sheet-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key != "sessions/42/scan001.pdf" {
		t.Fatalf("key = %q", key)
	}

	rc, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "sheet-bytes" {
		t.Fatalf("content = %q", data)
	}

	if _, err := store.Put(42, "scan002.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("Put second: %v", err)
	}
	keys, err := store.List(42)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List = %v, want 2 keys", keys)
	}

	empty, err := store.List(99)
	if err != nil {
		t.Fatalf("List(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("List(99) = %v, want none", empty)
	}

	u, err := store.URL(key)
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.HasPrefix(u, "file://") {
		t.Fatalf("URL = %q", u)
	}
}
