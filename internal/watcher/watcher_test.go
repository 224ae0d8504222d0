package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return r.err
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) has(suffix string) bool {
	for _, p := range r.seen() {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, roots []string, imp, rem *recorder, opts ...Option) *Watcher {
	t.Helper()
	var onImport, onRemove FileFunc
	if imp != nil {
		onImport = imp.handle
	}
	if rem != nil {
		onRemove = rem.handle
	}
	opts = append([]Option{WithDebounce(50 * time.Millisecond)}, opts...)
	w := NewWatcher(roots, []string{".json", ".yaml"}, true, onImport, onRemove, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, nil, nil, nil)

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
	if err := w.RemoveDirectory(dir); err != nil {
		t.Errorf("removing an unknown directory should be a no-op: %v", err)
	}
}

func TestWatcher_AddDirectory_syncsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "sierra.json"), `[]`); err != nil {
		t.Fatal(err)
	}
	imp := &recorder{}
	w := startWatcher(t, nil, imp, nil)
	if err := w.AddDirectory(dir, true); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return imp.has("sierra.json") }) {
		t.Errorf("expected sierra.json to be imported, got %v", imp.seen())
	}
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := mkdirAll(sub); err != nil {
		t.Fatal(err)
	}
	imp := &recorder{}
	startWatcher(t, []string{dir}, imp, nil)

	path := filepath.Join(sub, "rockies.json")
	for i := 0; i < 3; i++ {
		if err := writeFile(path, `[{"name": "Sky Pond"}]`); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(sub, "notes.txt"), "skip"); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return imp.has("rockies.json") }) {
		t.Fatalf("expected rockies.json to be imported, got %v", imp.seen())
	}
	time.Sleep(150 * time.Millisecond)
	if imp.has("notes.txt") {
		t.Error("notes.txt should not be imported")
	}
	count := 0
	for _, p := range imp.seen() {
		if strings.HasSuffix(p, "rockies.json") {
			count++
		}
	}
	if count > 2 {
		t.Errorf("rapid writes should be debounced, got %d imports", count)
	}
}

func TestWatcher_RemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zion.yaml")
	if err := writeFile(path, "name: Angels Landing\n"); err != nil {
		t.Fatal(err)
	}
	rem := &recorder{}
	startWatcher(t, []string{dir}, nil, rem)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rem.has("zion.yaml") }) {
		t.Errorf("expected zion.yaml removal, got %v", rem.seen())
	}
}

func TestWatcher_logsHandlerErrors(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "broken.json"), `{`); err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zap.WarnLevel)
	imp := &recorder{err: errors.New("parse failed")}
	w := startWatcher(t, []string{dir}, imp, nil, WithLogger(zap.New(core)))

	w.SyncExistingFiles()

	entries := logs.FilterMessage("watcher import failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one logged failure, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["path"]; !strings.HasSuffix(got.(string), "broken.json") {
		t.Errorf("logged path = %v", got)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.json", []string{".json"}, true},
		{"/a/b.JSON", []string{"json"}, true},
		{"/a/b.yaml", []string{".json"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.json", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles_importsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.json"), `[]`); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	imp := &recorder{}
	w := startWatcher(t, []string{dir}, imp, nil)
	w.SyncExistingFiles()

	got := imp.seen()
	if len(got) != 1 || !strings.HasSuffix(got[0], "a.json") {
		t.Errorf("expected one imported file a.json, got %v", got)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "watch", "me")
	startWatcher(t, []string{root}, nil, nil)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_NewDirectory_importsFilesInside(t *testing.T) {
	dir := t.TempDir()
	imp := &recorder{}
	startWatcher(t, []string{dir}, imp, nil)

	nested := filepath.Join(dir, "utah", "zion")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "narrows.yaml"), "name: The Narrows\n"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "utah", "arches.json"), `[]`); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, func() bool { return imp.has("narrows.yaml") && imp.has("arches.json") })
	if !ok {
		t.Errorf("expected files in new folders to be imported, got %v", imp.seen())
	}
}

func TestListDirs(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "utah", "zion")
	if err := mkdirAll(nested); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(root, "utah", "arches.json"), "[]"); err != nil {
		t.Fatal(err)
	}
	flat, err := listDirs(root, false)
	if err != nil || len(flat) != 1 || flat[0] != root {
		t.Errorf("non-recursive listDirs = %v, %v", flat, err)
	}
	all, err := listDirs(root, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{root, filepath.Join(root, "utah"), nested}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("recursive listDirs = %v, want %v", all, want)
	}
}

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
