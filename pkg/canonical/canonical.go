// Package canonical encodes values as canonical JSON: object keys sorted,
// strings NFC-normalized, no insignificant whitespace. Equal documents encode
// to identical bytes, which makes the output suitable for digests.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrKeyCollision indicates two object keys normalize to the same NFC form.
	ErrKeyCollision = errors.New("canonical: object keys collide after normalization")
	// ErrUnsupportedType indicates a value that has no JSON representation.
	ErrUnsupportedType = errors.New("canonical: unsupported type")
)

// Marshal encodes v as canonical JSON. v is first encoded with encoding/json,
// so struct tags and MarshalJSON methods are honored.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	var buf bytes.Buffer
	if err := write(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns the hex-encoded SHA-256 of the canonical encoding of v.
func Digest(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func write(buf *bytes.Buffer, v any) error {
	switch value := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(value))
	case string:
		return writeString(buf, value)
	case json.Number:
		writeNumber(buf, value)
	case []any:
		buf.WriteByte('[')
		for i, item := range value {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return writeObject(buf, value)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	return nil
}

func writeObject(buf *bytes.Buffer, obj map[string]any) error {
	normalized := make(map[string]any, len(obj))
	keys := make([]string, 0, len(obj))

	for k, v := range obj {
		nk := norm.NFC.String(k)
		if _, ok := normalized[nk]; ok {
			return fmt.Errorf("%w: %q", ErrKeyCollision, nk)
		}
		normalized[nk] = v
		keys = append(keys, nk)
	}

	slices.Sort(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := write(buf, normalized[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(norm.NFC.String(s))
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

// Integers keep their literal form; other numbers are re-rendered in the
// shortest form that round-trips, so 1.50 and 1.5 encode identically.
func writeNumber(buf *bytes.Buffer, n json.Number) {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return
	}
	if f, err := n.Float64(); err == nil {
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return
	}
	buf.WriteString(n.String())
}
