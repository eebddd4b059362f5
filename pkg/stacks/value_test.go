package stacks_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propslab/props/pkg/stacks"
)

// parseValue decodes a tagged value literal for test fixtures
func parseValue(t *testing.T, raw string) stacks.Value {
	t.Helper()

	var v stacks.Value
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValueExtractsTupleFields(t *testing.T) {
	t.Parallel()

	// Arrange - a prop record as the node would decode it
	v := parseValue(t, `{
		"type": "tuple",
		"value": {
			"giver":    {"type": "principal", "value": "SP1GIVER"},
			"receiver": {"type": "principal", "value": "SP2RECEIVER"},
			"memo":     {"type": "string-ascii", "value": "nice work"}
		}
	}`)

	// Act
	giver, err := v.Field("giver")
	require.NoError(t, err)
	addr, err := giver.Principal()
	require.NoError(t, err)

	memo, err := v.Field("memo")
	require.NoError(t, err)
	text, err := memo.Ascii()
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "SP1GIVER", addr)
	assert.Equal(t, "nice work", text)
}

func TestValueReportsMissingFields(t *testing.T) {
	t.Parallel()

	v := parseValue(t, `{"type":"tuple","value":{"giver":{"type":"principal","value":"SP1"}}}`)

	_, err := v.Field("receiver")

	require.Error(t, err)
	assert.ErrorIs(t, err, stacks.ErrFieldMissing)
}

func TestValueRejectsTypeMismatches(t *testing.T) {
	t.Parallel()

	t.Run("it rejects uint extraction from a principal", func(t *testing.T) {
		t.Parallel()

		v := parseValue(t, `{"type":"principal","value":"SP1"}`)

		_, err := v.Uint()
		assert.ErrorIs(t, err, stacks.ErrTypeMismatch)
	})

	t.Run("it rejects field extraction from a scalar", func(t *testing.T) {
		t.Parallel()

		v := parseValue(t, `{"type":"uint","value":"u1"}`)

		_, err := v.Field("anything")
		assert.ErrorIs(t, err, stacks.ErrTypeMismatch)
	})
}

func TestValueParsesUintEncodings(t *testing.T) {
	t.Parallel()

	t.Run("it parses plain decimal strings", func(t *testing.T) {
		t.Parallel()

		v := parseValue(t, `{"type":"uint","value":"42"}`)
		n, err := v.Uint()
		require.NoError(t, err)
		assert.Equal(t, uint64(42), n)
	})

	t.Run("it parses u-prefixed clarity literals", func(t *testing.T) {
		t.Parallel()

		v := parseValue(t, `{"type":"uint","value":"u42"}`)
		n, err := v.Uint()
		require.NoError(t, err)
		assert.Equal(t, uint64(42), n)
	})
}

func TestValueUnwrapsOptionals(t *testing.T) {
	t.Parallel()

	t.Run("it unwraps some", func(t *testing.T) {
		t.Parallel()

		v := parseValue(t, `{"type":"optional","value":{"type":"uint","value":"u3"}}`)
		inner, ok, err := v.Optional()
		require.NoError(t, err)
		require.True(t, ok)

		n, err := inner.Uint()
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n)
	})

	t.Run("it reports none as absent", func(t *testing.T) {
		t.Parallel()

		v := parseValue(t, `{"type":"none","value":null}`)
		_, ok, err := v.Optional()
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestValueExtractsLists(t *testing.T) {
	t.Parallel()

	v := parseValue(t, `{"type":"list","value":[
		{"type":"uint","value":"u1"},
		{"type":"uint","value":"u2"}
	]}`)

	items, err := v.List()
	require.NoError(t, err)
	require.Len(t, items, 2)

	second, err := items[1].Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second)
}

func TestArgumentConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "u12", stacks.UintArg(12))
	assert.Equal(t, "'SP1ABC", stacks.PrincipalArg("SP1ABC"))
}
