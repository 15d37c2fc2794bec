package wire

import (
	"bytes"
	"math"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	return e
}

func TestEntryRoundTrip(t *testing.T) {
	now := time.Now()
	cases := []Entry{
		{Gen: 0, StoredAt: now, TTL: 0, Payload: nil},
		{Gen: 42, StoredAt: now, TTL: 500 * time.Millisecond, Payload: []byte("hello")},
		{Gen: math.MaxUint64, StoredAt: now.Add(-time.Hour), TTL: time.Hour, Payload: []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		got := mustDecode(t, EncodeEntry(tc))
		if got.Gen != tc.Gen {
			t.Fatalf("gen mismatch: got %d want %d", got.Gen, tc.Gen)
		}
		if !got.StoredAt.Equal(time.Unix(0, tc.StoredAt.UnixNano())) {
			t.Fatalf("storedAt mismatch: got %v want %v", got.StoredAt, tc.StoredAt)
		}
		if got.TTL != tc.TTL {
			t.Fatalf("ttl mismatch: got %v want %v", got.TTL, tc.TTL)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestEntryRejectsTrailingBytes(t *testing.T) {
	enc := EncodeEntry(Entry{Gen: 7, StoredAt: time.Now(), Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := DecodeEntry(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestEntryCorruptHeaders(t *testing.T) {
	enc := EncodeEntry(Entry{Gen: 1, StoredAt: time.Now(), Payload: []byte("abc")})

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := DecodeEntry(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := DecodeEntry(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindEntry + 1
	if _, err := DecodeEntry(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	if _, err := DecodeEntry(enc[:headerLen-1]); err == nil {
		t.Fatalf("expected error on short header")
	}

	if _, err := DecodeEntry(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated payload")
	}
}

func TestEntryExpiry(t *testing.T) {
	stored := time.Unix(1000, 0)
	e := Entry{StoredAt: stored, TTL: time.Second}
	if e.Expired(stored.Add(999 * time.Millisecond)) {
		t.Fatalf("entry should still be fresh")
	}
	if !e.Expired(stored.Add(time.Second)) {
		t.Fatalf("entry should be expired at ttl")
	}
	if (Entry{StoredAt: stored}).Expired(stored.Add(24 * time.Hour)) {
		t.Fatalf("ttl<=0 must never expire")
	}
}
