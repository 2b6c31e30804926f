package wire

import "testing"

func TestEncodeV1DecodeRoundTrip(t *testing.T) {
	m := Message{ID: "1", Method: "add", Type: TypeRequest, Args: []byte(`[1,2]`)}
	data, err := EncodeV1(m)
	if err != nil {
		t.Fatalf("EncodeV1: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != m.ID || got.Method != m.Method || got.Type != m.Type {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, m)
	}
}

func TestEncodeV2DecodeRoundTrip(t *testing.T) {
	m := Message{ID: "2", Method: "bufLen", Type: TypeRequest, TransferSlots: []TransferSlot{{Kind: SlotRaw}}}
	data, err := EncodeV2(m)
	if err != nil {
		t.Fatalf("EncodeV2: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != m.ID || len(got.TransferSlots) != 1 {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, m)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"id":"1","type":"request","bogus":true}`))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}
