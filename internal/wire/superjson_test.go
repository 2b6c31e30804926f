package wire

import (
	"math/big"
	"testing"
	"time"
)

func TestSuperJSONCodec_RoundTripRichTypes(t *testing.T) {
	type payload struct {
		When  time.Time `json:"when"`
		Big   *big.Int  `json:"big"`
		Bytes []byte    `json:"bytes"`
	}
	when := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	in := payload{When: when, Big: big.NewInt(123456789), Bytes: []byte("hello")}

	data, err := SuperJSONCodec.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := SuperJSONCodec.Unmarshal(data, nil)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", decoded)
	}

	gotWhen, ok := m["when"].(time.Time)
	if !ok || !gotWhen.Equal(when) {
		t.Errorf("when = %#v, want %v", m["when"], when)
	}
	gotBig, ok := m["big"].(*big.Int)
	if !ok || gotBig.Cmp(big.NewInt(123456789)) != 0 {
		t.Errorf("big = %#v, want 123456789", m["big"])
	}
	gotBytes, ok := m["bytes"].([]byte)
	if !ok || string(gotBytes) != "hello" {
		t.Errorf("bytes = %#v, want []byte(\"hello\")", m["bytes"])
	}
}

func TestSuperJSONCodec_SetAndNonStringMap(t *testing.T) {
	in := map[string]any{
		"ids":   NewSet(1, 2, 3),
		"table": map[int]string{1: "one", 2: "two"},
	}
	data, err := SuperJSONCodec.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := SuperJSONCodec.Unmarshal(data, nil)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m := decoded.(map[string]any)

	ids, ok := m["ids"].([]any)
	if !ok || len(ids) != 3 {
		t.Errorf("ids = %#v, want a 3-element set", m["ids"])
	}
	table, ok := m["table"].(map[any]any)
	if !ok || len(table) != 2 {
		t.Errorf("table = %#v, want a 2-entry map", m["table"])
	}
}

func TestJSONCodec_PlainRoundTrip(t *testing.T) {
	data, err := JSONCodec.Marshal(map[string]any{"a": 1.0, "b": "two"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := JSONCodec.Unmarshal(data, nil)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m := decoded.(map[string]any)
	if m["a"] != 1.0 || m["b"] != "two" {
		t.Errorf("decoded = %#v", m)
	}
}
