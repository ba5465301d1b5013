package wallsync

import (
	"path/filepath"
	"testing"
)

func TestDiscoverJSON(t *testing.T) {
	root := t.TempDir()
	writeArchiveFile(t, root, "Japan/20240102.json", "{}")
	writeArchiveFile(t, root, "China/20240101.json", "{}")
	writeArchiveFile(t, root, "China/20240101.JSON.bak", "{}")
	writeArchiveFile(t, root, "China/notes.txt", "")
	writeArchiveFile(t, root, "Region/Country/20240103.json", "{}")

	got, err := DiscoverJSON(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "China", "20240101.json"),
		filepath.Join(root, "Japan", "20240102.json"),
		filepath.Join(root, "Region", "Country", "20240103.json"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDiscoverJSON_MissingRoot(t *testing.T) {
	got, err := DiscoverJSON(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(got) != 0 {
		t.Fatalf("missing root: got %v, %v", got, err)
	}
}

func TestPathContext(t *testing.T) {
	root := filepath.Join("data", "archive")
	cases := []struct {
		path    string
		country string
		stem    string
		ok      bool
	}{
		{filepath.Join(root, "China", "20240101.json"), "China", "20240101", true},
		{filepath.Join(root, "Region", "France", "badday.json"), "France", "badday", true},
		{filepath.Join(root, "20240101.json"), "", "", false},
	}
	for _, tc := range cases {
		country, stem, ok := PathContext(root, tc.path)
		if country != tc.country || stem != tc.stem || ok != tc.ok {
			t.Fatalf("PathContext(%s) = %q, %q, %v", tc.path, country, stem, ok)
		}
	}
}
