package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1

	headerLen = 4 + 1 + 1 + 8 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("methodcache: corrupt entry")
	magic4     = [...]byte{'M', 'C', 'H', 'E'}
)

// Entry is one generated method result as stored in a provider.
type Entry struct {
	Gen      uint64
	StoredAt time.Time
	TTL      time.Duration
	Payload  []byte
}

// Age reports how long ago the entry was generated.
func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.StoredAt) }

// Expired reports whether the entry is past its TTL. TTL<=0 never expires.
func (e Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && e.Age(now) >= e.TTL
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | ver(1) | kind(1) | gen(u64 be) | storedAt(unix nano, i64 be) | ttl(ns, i64 be) | vlen(u32 be) | payload(vlen)
func EncodeEntry(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.Gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(e.StoredAt.UnixNano()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(e.TTL))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// DecodeEntry parses an entry; payload aliases b.
func DecodeEntry(b []byte) (Entry, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}

	off := 6
	var e Entry

	e.Gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	e.StoredAt = time.Unix(0, int64(binary.BigEndian.Uint64(b[off:off+8])))
	off += 8

	e.TTL = time.Duration(int64(binary.BigEndian.Uint64(b[off : off+8])))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// exact length: trailing bytes mean a foreign or truncated write
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}
	if vlen > 0 {
		e.Payload = b[off : off+vlen]
	}
	return e, nil
}
