package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storyfetch/pkg/models"
)

func validResult(username string) models.ScrapeResult {
	return models.ScrapeResult{
		"username":      username,
		"method":        models.MethodHTTP,
		"forms_found":   1,
		"inputs_found":  2,
		"sample_images": []interface{}{"https://example.com/a.jpg"},
	}
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plainuser", "plainuser"},
		{"user.name-1_x", "user.name-1_x"},
		{"a b", "a_b"},
		{"a_b", "a_b"}, // collides with "a b" by design of the key scheme
		{"we/ird\\chars", "we_ird_chars"},
		{"émoji🙂", "_moji__"},
	}
	for _, tt := range tests {
		if got := SanitizeUsername(tt.in); got != tt.want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolvePathIsPureAndDeterministic(t *testing.T) {
	store := New("/var/cache/storyfetch", nil)

	first := store.ResolvePath("some user")
	second := store.ResolvePath("some user")
	if first != second {
		t.Errorf("ResolvePath not deterministic: %q vs %q", first, second)
	}
	if first != filepath.Join("/var/cache/storyfetch", "some_user.json") {
		t.Errorf("unexpected path %q", first)
	}

	// colliding usernames resolve to the same file
	if store.ResolvePath("a b") != store.ResolvePath("a_b") {
		t.Error("expected sanitized collisions to share a path")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := New(t.TempDir(), nil)

	written := validResult("u1")
	if err := store.Write("u1", written); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, ok := store.Read("u1", 12*time.Hour)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if !got.Cached() {
		t.Error("expected cached=true on read")
	}
	if got.Username() != "u1" || got.Method() != models.MethodHTTP {
		t.Error("identity fields lost in round trip")
	}
	if got.Int("forms_found") != 1 || got.Int("inputs_found") != 2 {
		t.Error("count fields lost in round trip")
	}
}

func TestCachedFlagNeverPersisted(t *testing.T) {
	store := New(t.TempDir(), nil)

	result := validResult("u1")
	result["cached"] = true
	if err := store.Write("u1", result); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(store.ResolvePath("u1"))
	if err != nil {
		t.Fatalf("failed to read cache file: %v", err)
	}
	if strings.Contains(string(raw), `"cached"`) {
		t.Error("cached flag leaked into the persisted file")
	}

	// the caller's record must not have been mutated
	if !result.Cached() {
		t.Error("Write mutated the caller's result")
	}

	// file is pretty-printed JSON
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("cache file is not valid JSON: %v", err)
	}
	if !strings.Contains(string(raw), "\n") {
		t.Error("expected an indented cache file")
	}
}

func TestReadMissingFile(t *testing.T) {
	store := New(t.TempDir(), nil)
	if _, ok := store.Read("nobody", 12*time.Hour); ok {
		t.Error("expected a miss for a username never written")
	}
}

func TestReadTTLExpiry(t *testing.T) {
	store := New(t.TempDir(), nil)
	if err := store.Write("u1", validResult("u1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	path := store.ResolvePath("u1")

	// just under the TTL still serves
	recent := time.Now().Add(-11 * time.Hour)
	if err := os.Chtimes(path, recent, recent); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if _, ok := store.Read("u1", 12*time.Hour); !ok {
		t.Error("expected a hit for an entry younger than the TTL")
	}

	// older than the TTL reads as absent, file stays in place
	old := time.Now().Add(-13 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if _, ok := store.Read("u1", 12*time.Hour); ok {
		t.Error("expected a miss for an expired entry")
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("expiry must not delete the file")
	}

	// a later write makes the same entry fresh again
	if err := store.Write("u1", validResult("u1")); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if _, ok := store.Read("u1", 12*time.Hour); !ok {
		t.Error("expected a hit after overwrite")
	}
}

func TestReadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	path := store.ResolvePath("u1")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt file: %v", err)
	}

	if _, ok := store.Read("u1", 12*time.Hour); ok {
		t.Error("expected corrupt JSON to read as a miss")
	}
}

func TestReadRejectsUnclassifiableContent(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	empty := models.ScrapeResult{
		"username":     "u1",
		"method":       models.MethodHTTP,
		"forms_found":  0,
		"inputs_found": 0,
	}
	data, err := json.MarshalIndent(empty, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.ResolvePath("u1"), data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Read("u1", 12*time.Hour); ok {
		t.Error("expected a result failing classification to read as a miss")
	}
}

func TestWriteCreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "nested", "cache")
	store := New(dir, nil)

	if err := store.Write("u1", validResult("u1")); err != nil {
		t.Fatalf("Write into missing directory failed: %v", err)
	}
	if _, ok := store.Read("u1", time.Hour); !ok {
		t.Error("expected a hit after writing into a created directory")
	}
}

func TestWriteFailureIsReported(t *testing.T) {
	// a file standing where the cache directory should be makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := New(filepath.Join(blocker, "cache"), nil)
	if err := store.Write("u1", validResult("u1")); err == nil {
		t.Error("expected Write to report an I/O failure")
	}
}
