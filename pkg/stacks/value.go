package stacks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for value extraction
var (
	ErrFieldMissing = errors.New("field missing from tuple value")
	ErrTypeMismatch = errors.New("unexpected clarity value type")
)

// Clarity type tags as reported by the node's decoded JSON representation
const (
	TypeUint      = "uint"
	TypeBool      = "bool"
	TypePrincipal = "principal"
	TypeAscii     = "string-ascii"
	TypeTuple     = "tuple"
	TypeList      = "list"
	TypeOptional  = "optional"
	TypeNone      = "none"
	TypeResponse  = "response"
)

// Value is a decoded read-only call result: a nested tagged value where the
// payload shape depends on the type tag. Fields of tuple values are extracted
// by name; scalar payloads are extracted by the typed accessors below.
type Value struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Field extracts a named field from a tuple value
func (v Value) Field(name string) (Value, error) {
	if v.Type != TypeTuple {
		return Value{}, fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypeTuple, v.Type)
	}

	var fields map[string]Value
	if err := json.Unmarshal(v.Value, &fields); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}

	field, ok := fields[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrFieldMissing, name)
	}
	return field, nil
}

// Uint extracts an unsigned integer payload. The node serialises uints as
// decimal strings to avoid JSON number precision loss.
func (v Value) Uint() (uint64, error) {
	if v.Type != TypeUint {
		return 0, fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypeUint, v.Type)
	}

	var raw string
	if err := json.Unmarshal(v.Value, &raw); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}

	n, err := strconv.ParseUint(strings.TrimPrefix(raw, "u"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	return n, nil
}

// Principal extracts a principal (address) payload
func (v Value) Principal() (string, error) {
	if v.Type != TypePrincipal {
		return "", fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypePrincipal, v.Type)
	}

	var addr string
	if err := json.Unmarshal(v.Value, &addr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	return addr, nil
}

// Ascii extracts an ascii string payload
func (v Value) Ascii() (string, error) {
	if v.Type != TypeAscii {
		return "", fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypeAscii, v.Type)
	}

	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	return s, nil
}

// List extracts the elements of a list payload
func (v Value) List() ([]Value, error) {
	if v.Type != TypeList {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypeList, v.Type)
	}

	var items []Value
	if err := json.Unmarshal(v.Value, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	return items, nil
}

// Optional unwraps an optional payload. The second return reports presence:
// (some x) yields (x, true), none yields (zero, false).
func (v Value) Optional() (Value, bool, error) {
	switch v.Type {
	case TypeNone:
		return Value{}, false, nil
	case TypeOptional:
		var inner Value
		if err := json.Unmarshal(v.Value, &inner); err != nil {
			return Value{}, false, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
		}
		return inner, true, nil
	default:
		return Value{}, false, fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypeOptional, v.Type)
	}
}

// Argument constructors for positional call arguments

// UintArg encodes an unsigned integer call argument
func UintArg(n uint64) string {
	return "u" + strconv.FormatUint(n, 10)
}

// PrincipalArg encodes a principal call argument
func PrincipalArg(addr string) string {
	return "'" + addr
}
