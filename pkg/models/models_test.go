package models

import (
	"encoding/json"
	"testing"
)

func TestAccessorCoercion(t *testing.T) {
	r := ScrapeResult{
		"username":  "someuser",
		"method":    MethodBrowser,
		"count_i":   5,
		"count_i64": int64(7),
		"count_f":   float64(9),
		"count_bad": "nine",
		"flag":      true,
		"list":      []interface{}{"a", "b"},
		"strs":      []string{"x"},
	}

	if got := r.Username(); got != "someuser" {
		t.Errorf("Username() = %q", got)
	}
	if got := r.Method(); got != MethodBrowser {
		t.Errorf("Method() = %q", got)
	}
	if got := r.Int("count_i"); got != 5 {
		t.Errorf("Int(count_i) = %d", got)
	}
	if got := r.Int("count_i64"); got != 7 {
		t.Errorf("Int(count_i64) = %d", got)
	}
	if got := r.Int("count_f"); got != 9 {
		t.Errorf("Int(count_f) = %d", got)
	}
	if got := r.Int("count_bad"); got != 0 {
		t.Errorf("Int(count_bad) = %d, want 0", got)
	}
	if got := r.Int("missing"); got != 0 {
		t.Errorf("Int(missing) = %d, want 0", got)
	}
	if !r.Bool("flag") {
		t.Error("Bool(flag) = false")
	}
	if r.Bool("username") {
		t.Error("Bool(username) should coerce to false")
	}
	if got := len(r.List("list")); got != 2 {
		t.Errorf("List(list) length = %d", got)
	}
	if got := len(r.List("strs")); got != 1 {
		t.Errorf("List(strs) length = %d", got)
	}
	if r.List("flag") != nil {
		t.Error("List(flag) should coerce to nil")
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var r ScrapeResult
	if r.String("x") != "" || r.Int("x") != 0 || r.Bool("x") || r.List("x") != nil {
		t.Error("nil receiver should coerce everything to zero values")
	}
	if r.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestCloneIsIndependentAtTopLevel(t *testing.T) {
	r := New("someuser", MethodHTTP)
	c := r.Clone()
	c["cached"] = true

	if r.Cached() {
		t.Error("mutating the clone leaked into the original")
	}
	if !c.Cached() {
		t.Error("clone lost its overlay")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := New("someuser", MethodBrowser)
	r["media_items_found"] = 2
	r["media_items"] = []MediaItem{
		{Type: "image", URL: "https://cdn.example.com/a.jpg"},
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back ScrapeResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Username() != "someuser" || back.Method() != MethodBrowser {
		t.Error("identity fields lost in round trip")
	}
	if back.Int("media_items_found") != 2 {
		t.Errorf("media_items_found = %d after round trip", back.Int("media_items_found"))
	}
	if len(back.List("media_items")) != 1 {
		t.Errorf("media_items length = %d after round trip", len(back.List("media_items")))
	}
}
