package encoding

import "bytes"

import "testing"

func TestU32BEOrderMatchesNumericOrder(t *testing.T) {
	a := U32BE.Serialize(1)
	b := U32BE.Serialize(2)
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("U32BE(1) should sort before U32BE(2): got %x, %x", a, b)
	}
	v, err := U32BE.Deserialize(a)
	if err != nil || v != 1 {
		t.Fatalf("round-trip failed: got %d, %v", v, err)
	}
}

func TestU32BEWrongSize(t *testing.T) {
	if _, err := U32BE.Deserialize([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestU32LERoundTrip(t *testing.T) {
	b := U32LE.Serialize(0x01020304)
	if !bytes.Equal(b, []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Fatalf("unexpected little-endian encoding: %x", b)
	}
	v, err := U32LE.Deserialize(b)
	if err != nil || v != 0x01020304 {
		t.Fatalf("round-trip failed: got %d, %v", v, err)
	}
}

func TestU64BERoundTrip(t *testing.T) {
	b := U64BE.Serialize(1 << 40)
	v, err := U64BE.Deserialize(b)
	if err != nil || v != 1<<40 {
		t.Fatalf("round-trip failed: got %d, %v", v, err)
	}
}

func TestStringEncodingRoundTrip(t *testing.T) {
	s := StringEncoding.Serialize("hello")
	v, err := StringEncoding.Deserialize(s)
	if err != nil || v != "hello" {
		t.Fatalf("round-trip failed: got %q, %v", v, err)
	}
}

func TestBufferEncodingCopiesBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	out := BufferEncoding.Serialize(src)
	src[0] = 99
	if out[0] != 1 {
		t.Fatal("BufferEncoding.Serialize must copy, not alias, the input")
	}
}

func TestNullableBufferAbsentVsPresent(t *testing.T) {
	absent := NullableBuffer.Serialize(nil)
	got, err := NullableBuffer.Deserialize(absent)
	if err != nil || got != nil {
		t.Fatalf("expected nil round-trip, got %v, %v", got, err)
	}

	present := NullableBuffer.Serialize([]byte{})
	got, err = NullableBuffer.Deserialize(present)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected present empty slice, got %v, %v", got, err)
	}

	withData := NullableBuffer.Serialize([]byte{9, 9})
	got, err = NullableBuffer.Deserialize(withData)
	if err != nil || !bytes.Equal(got, []byte{9, 9}) {
		t.Fatalf("round-trip failed: got %v, %v", got, err)
	}
}

func TestNullableStringAbsentVsPresent(t *testing.T) {
	absent := NullableString.Serialize(nil)
	got, err := NullableString.Deserialize(absent)
	if err != nil || got != nil {
		t.Fatalf("expected nil round-trip, got %v, %v", got, err)
	}

	empty := ""
	present := NullableString.Serialize(&empty)
	got, err = NullableString.Deserialize(present)
	if err != nil || got == nil || *got != "" {
		t.Fatalf("expected present empty string, got %v, %v", got, err)
	}
}

func TestIncrementBigEndian(t *testing.T) {
	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{0x00}, []byte{0x01}},
		{[]byte{0x00, 0xff}, []byte{0x01, 0x00}},
		{[]byte{0x01, 0x02, 0x03}, []byte{0x01, 0x02, 0x04}},
	}
	for _, c := range cases {
		got := IncrementBigEndian(c.in)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("IncrementBigEndian(%x) = %x, want %x", c.in, got, c.want)
		}
	}
}

func TestIncrementBigEndianOverflow(t *testing.T) {
	if got := IncrementBigEndian([]byte{0xff, 0xff}); got != nil {
		t.Fatalf("expected nil (no upper bound) for all-0xff input, got %x", got)
	}
}

func TestPrefixEncodingKeyRange(t *testing.T) {
	pe := NewPrefixArrayEncoding[uint32](U32BE, 4)

	k1, err := pe.Serialize(1, []byte("abc"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	k2, err := pe.Serialize(2, []byte("xyz"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	gte, lt, err := pe.KeyRange(1)
	if err != nil {
		t.Fatalf("KeyRange: %v", err)
	}
	if bytes.Compare(k1, gte) < 0 || bytes.Compare(k1, lt) >= 0 {
		t.Fatalf("key for prefix 1 not within its own range: key=%x gte=%x lt=%x", k1, gte, lt)
	}
	if bytes.Compare(k2, gte) >= 0 && bytes.Compare(k2, lt) < 0 {
		t.Fatalf("key for prefix 2 incorrectly within prefix 1's range")
	}
}

func TestPrefixEncodingRoundTrip(t *testing.T) {
	pe := NewPrefixArrayEncoding[uint32](U32BE, 4)
	ser, err := pe.Serialize(42, []byte("leaf"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	p, k, err := pe.Deserialize(ser)
	if err != nil || p != 42 || !bytes.Equal(k, []byte("leaf")) {
		t.Fatalf("round-trip failed: p=%d k=%s err=%v", p, k, err)
	}
}

func TestPrefixEncodingWrongPrefixSize(t *testing.T) {
	// u32-style prefix declared with the wrong size triggers ErrPrefixSize.
	bad := NewPrefixArrayEncoding[uint32](U32BE, 3)
	if _, err := bad.Serialize(1, []byte("x")); err != ErrPrefixSize {
		t.Fatalf("expected ErrPrefixSize, got %v", err)
	}
}
