package codec

import (
	"reflect"
	"strings"
	"testing"
)

type point struct {
	X int    `json:"x" cbor:"x" msgpack:"x"`
	Y string `json:"y" cbor:"y" msgpack:"y"`
}

func TestTypedRoundTrip(t *testing.T) {
	in := point{X: 3, Y: "three"}
	codecs := map[string]Codec[point]{
		"json":    JSON[point]{},
		"msgpack": Msgpack[point]{},
		"cbor":    MustCBOR[point](true),
	}
	for name, c := range codecs {
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if out != in {
			t.Fatalf("%s: got %+v want %+v", name, out, in)
		}
	}
}

func TestMsgpackLooseInterfaceDecoding(t *testing.T) {
	c := Msgpack[any]{}
	b, err := c.Encode(int(7))
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(int64); !ok {
		t.Fatalf("decoded %T, want int64", v)
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := MustCBOR[any](true)
	m := map[string]any{"b": 1, "a": 2, "c": 3}
	first, err := c.Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("deterministic CBOR encoding differs between runs")
		}
	}
}

func TestLimit(t *testing.T) {
	c := Limit[any]{Inner: JSON[any]{}, MaxEncode: 16, MaxDecode: 16}

	if _, err := c.Encode(strings.Repeat("x", 32)); err == nil {
		t.Fatalf("expected encode limit error")
	}
	b, err := c.Encode("ok")
	if err != nil {
		t.Fatalf("small encode: %v", err)
	}
	if v, err := c.Decode(b); err != nil || v != "ok" {
		t.Fatalf("decode = %v, %v", v, err)
	}
	if _, err := c.Decode([]byte(`"` + strings.Repeat("y", 32) + `"`)); err == nil {
		t.Fatalf("expected decode limit error")
	}
}
