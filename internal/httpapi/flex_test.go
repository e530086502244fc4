package httpapi

import (
	"encoding/json"
	"testing"
)

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"x","b":1710065700000,"c":null}`), &v); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.A != "x" || v.B != "1710065700000" || v.C != "" {
		t.Fatalf("unexpected %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":{}}`), &v); err == nil {
		t.Fatalf("expected error for object")
	}
}

func TestFlexInt(t *testing.T) {
	var v struct {
		A flexInt `json:"a"`
		B flexInt `json:"b"`
		C flexInt `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"17","c":12.9}`), &v); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v.A != 42 || v.B != 17 || v.C != 12 {
		t.Fatalf("unexpected %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":"abc"}`), &v); err == nil {
		t.Fatalf("expected error")
	}
}
