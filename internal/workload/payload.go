package workload

import (
	"strconv"
	"strings"
)

// DataType selects the shape of write payloads.
type DataType string

const (
	Integer DataType = "INTEGER"
	String  DataType = "STRING"
	Bytes   DataType = "BYTES"
)

// Seed text for STRING payloads.
const (
	charData   = "DATAS"
	stringData = "This the test data to be written to the server"
)

// ParseDataType maps a datatype name to a DataType. Unknown names fall back to
// Integer; ok reports whether the name was recognised.
func ParseDataType(name string) (dt DataType, ok bool) {
	switch DataType(strings.ToUpper(strings.TrimSpace(name))) {
	case Integer:
		return Integer, true
	case String:
		return String, true
	case Bytes:
		return Bytes, true
	default:
		return Integer, false
	}
}

// Payload is the value written by a Write operation. Only the field matching
// Kind is meaningful.
type Payload struct {
	Kind  DataType
	Int   int64
	Str   string
	Bytes []byte
}

// Value returns the payload as a native Go value (int64, string or []byte).
func (p Payload) Value() interface{} {
	switch p.Kind {
	case String:
		return p.Str
	case Bytes:
		return p.Bytes
	default:
		return p.Int
	}
}

// Encode returns the byte form stored by byte-oriented backends.
func (p Payload) Encode() []byte {
	switch p.Kind {
	case String:
		return []byte(p.Str)
	case Bytes:
		return p.Bytes
	default:
		return strconv.AppendInt(nil, p.Int, 10)
	}
}

// Len is the encoded size in bytes.
func (p Payload) Len() int {
	switch p.Kind {
	case String:
		return len(p.Str)
	case Bytes:
		return len(p.Bytes)
	default:
		return 8
	}
}

// Datagen builds the payload written for key.
func Datagen(key int, dt DataType, datasize int) Payload {
	switch dt {
	case String:
		var b strings.Builder
		b.WriteString(charData)
		for b.Len() < datasize {
			b.WriteString(stringData)
		}
		b.WriteString(strconv.Itoa(key))
		return Payload{Kind: String, Str: b.String()}
	case Bytes:
		if datasize < 0 {
			datasize = 0
		}
		buf := make([]byte, datasize)
		for i := range buf {
			buf[i] = byte(i % 256)
		}
		return Payload{Kind: Bytes, Bytes: buf}
	default:
		return Payload{Kind: Integer, Int: int64(key)}
	}
}
