package wire

import "testing"

func TestEncodeDecodeTransfers_RawSlot(t *testing.T) {
	buf := []byte("hello")
	tree := map[string]any{
		"greeting": Transfer{Value: buf, Handles: []any{buf}},
		"plain":    "untouched",
	}

	enc, err := EncodeTransfers(tree, nil)
	if err != nil {
		t.Fatalf("EncodeTransfers: %v", err)
	}
	if len(enc.Slots) != 1 || enc.Slots[0].Kind != SlotRaw {
		t.Fatalf("unexpected slots: %+v", enc.Slots)
	}
	if len(enc.Handles) != 1 {
		t.Fatalf("unexpected handles: %+v", enc.Handles)
	}

	out, err := DecodeTransfers(enc.Tree, enc.Slots, enc.Handles, nil)
	if err != nil {
		t.Fatalf("DecodeTransfers: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", out)
	}
	if m["plain"] != "untouched" {
		t.Errorf("plain field corrupted: %v", m["plain"])
	}
	got, ok := m["greeting"].([]byte)
	if !ok || string(got) != "hello" {
		t.Errorf("greeting = %#v, want []byte(\"hello\")", m["greeting"])
	}
}

func TestDecodeTransfers_SlotIndexOutOfRange(t *testing.T) {
	_, err := DecodeTransfers(placeholder(3), nil, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an out-of-range slot index")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}
}

func TestDecodeTransfers_DuplicateSlotUse(t *testing.T) {
	slots := []TransferSlot{{Kind: SlotRaw, HandleCount: 1}}
	handles := []any{[]byte("x")}
	tree := []any{placeholder(0), placeholder(0)}

	_, err := DecodeTransfers(tree, slots, handles, nil)
	if err == nil {
		t.Fatal("expected an error when the same slot is consumed twice")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}
}

func TestEncodeTransfers_CycleRefused(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	_, err := EncodeTransfers(m, nil)
	if err == nil {
		t.Fatal("expected CycleError for a self-referential map")
	}
	if _, ok := err.(CycleError); !ok {
		t.Fatalf("expected CycleError, got %T: %v", err, err)
	}
}

func TestEncodeDecodeTransfers_MultiHandleSlotDoesNotMisalignSiblingSlots(t *testing.T) {
	bufA := []byte("buffer-a")
	bufB := []byte("buffer-b")
	solo := []byte("solo")
	tree := map[string]any{
		"pair": Transfer{Value: []any{bufA, bufB}, Handles: []any{bufA, bufB}},
		"solo": Transfer{Value: solo, Handles: []any{solo}},
	}

	enc, err := EncodeTransfers(tree, nil)
	if err != nil {
		t.Fatalf("EncodeTransfers: %v", err)
	}
	if len(enc.Slots) != 2 || len(enc.Handles) != 3 {
		t.Fatalf("unexpected encode result: slots=%+v handles=%+v", enc.Slots, enc.Handles)
	}

	out, err := DecodeTransfers(enc.Tree, enc.Slots, enc.Handles, nil)
	if err != nil {
		t.Fatalf("DecodeTransfers: %v", err)
	}
	m := out.(map[string]any)

	pair, ok := m["pair"].([]any)
	if !ok || len(pair) != 2 {
		t.Fatalf("pair = %#v, want a 2-element slice", m["pair"])
	}
	if string(pair[0].([]byte)) != "buffer-a" || string(pair[1].([]byte)) != "buffer-b" {
		t.Errorf("pair handles = %q, %q", pair[0], pair[1])
	}
	got, ok := m["solo"].([]byte)
	if !ok || string(got) != "solo" {
		t.Errorf("solo = %#v, want []byte(\"solo\") — the multi-handle slot bled into the next slot's handles", m["solo"])
	}
}

type fakeHandler struct{}

func (fakeHandler) Name() string        { return "fake" }
func (fakeHandler) CanHandle(v any) bool {
	_, ok := v.(fakeTransferable)
	return ok
}
func (fakeHandler) Serialize(v any) (any, []any, error) {
	ft := v.(fakeTransferable)
	return map[string]any{"tag": ft.tag}, []any{ft.payload}, nil
}
func (fakeHandler) Deserialize(substitute any, handles []any) (any, error) {
	m := substitute.(map[string]any)
	return fakeTransferable{tag: m["tag"].(string), payload: handles[0].([]byte)}, nil
}

type fakeTransferable struct {
	tag     string
	payload []byte
}

func TestEncodeDecodeTransfers_CustomHandler(t *testing.T) {
	reg := NewTransferRegistry()
	reg.Register(fakeHandler{})

	ft := fakeTransferable{tag: "x", payload: []byte("payload")}
	enc, err := EncodeTransfers([]any{ft}, reg)
	if err != nil {
		t.Fatalf("EncodeTransfers: %v", err)
	}
	if len(enc.Slots) != 1 || enc.Slots[0].Kind != SlotHandler || enc.Slots[0].HandlerName != "fake" {
		t.Fatalf("unexpected slot: %+v", enc.Slots)
	}

	out, err := DecodeTransfers(enc.Tree, enc.Slots, enc.Handles, reg)
	if err != nil {
		t.Fatalf("DecodeTransfers: %v", err)
	}
	arr := out.([]any)
	got, ok := arr[0].(fakeTransferable)
	if !ok || got.tag != "x" || string(got.payload) != "payload" {
		t.Errorf("roundtrip = %#v, want fakeTransferable{tag: x, payload: payload}", arr[0])
	}
}
