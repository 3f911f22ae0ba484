package gen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// JSONWriter emits a single JSON value with full control over member
// order and number lexing. Shape serializers drive it; they, not the
// writer, decide what is wire-legal for a given shape.
type JSONWriter struct {
	buf   bytes.Buffer
	stack []int //values written at each open container
	keyed bool  //a key was just written; the next value takes no separator
}

func NewJSONWriter() *JSONWriter {
	return &JSONWriter{}
}

func (w *JSONWriter) comma() {
	if w.keyed {
		w.keyed = false
		return
	}
	if n := len(w.stack); n > 0 {
		if w.stack[n-1] > 0 {
			w.buf.WriteByte(',')
		}
		w.stack[n-1]++
	}
}

func (w *JSONWriter) BeginObject() {
	w.comma()
	w.buf.WriteByte('{')
	w.stack = append(w.stack, 0)
}

func (w *JSONWriter) EndObject() {
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteByte('}')
}

func (w *JSONWriter) BeginArray() {
	w.comma()
	w.buf.WriteByte('[')
	w.stack = append(w.stack, 0)
}

func (w *JSONWriter) EndArray() {
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteByte(']')
}

// Key writes an object key. The following value call writes the member.
func (w *JSONWriter) Key(name string) error {
	w.comma()
	if err := w.writeStringLiteral(name); err != nil {
		return err
	}
	w.buf.WriteByte(':')
	w.keyed = true
	return nil
}

func (w *JSONWriter) writeStringLiteral(s string) error {
	lit, err := gojson.Marshal(s)
	if err != nil {
		return err
	}
	w.buf.Write(lit)
	return nil
}

func (w *JSONWriter) WriteString(s string) error {
	w.comma()
	return w.writeStringLiteral(s)
}

func (w *JSONWriter) WriteBool(b bool) error {
	w.comma()
	w.buf.WriteString(strconv.FormatBool(b))
	return nil
}

func (w *JSONWriter) WriteNull() error {
	w.comma()
	w.buf.WriteString("null")
	return nil
}

// WriteNegInt and WritePosInt keep the sign distinction explicit so
// 64-bit-safe integers never round-trip through float64.
func (w *JSONWriter) WriteNegInt(i int64) error {
	w.comma()
	w.buf.WriteString(strconv.FormatInt(i, 10))
	return nil
}

func (w *JSONWriter) WritePosInt(u uint64) error {
	w.comma()
	w.buf.WriteString(strconv.FormatUint(u, 10))
	return nil
}

func (w *JSONWriter) WriteFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("cannot represent %v in JSON", f)
	}
	w.comma()
	w.buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// WriteRawNumber writes a pre-formatted numeric literal (big decimals).
func (w *JSONWriter) WriteRawNumber(lit string) error {
	w.comma()
	w.buf.WriteString(lit)
	return nil
}

func (w *JSONWriter) WriteBase64(b []byte) error {
	w.comma()
	w.buf.WriteByte('"')
	w.buf.WriteString(base64.StdEncoding.EncodeToString(b))
	w.buf.WriteByte('"')
	return nil
}

func (w *JSONWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *JSONWriter) String() string {
	return w.buf.String()
}
