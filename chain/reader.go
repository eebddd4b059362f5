// Package chain adapts read-only contract calls into the typed lookups the
// props aggregator consumes. It owns the contract's function names, argument
// encoding, and field extraction from the decoded tagged values.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/propslab/props"
	"github.com/propslab/props/pkg/stacks"
)

// Read-only function names exposed by the props contract
const (
	fnGetPropCount   = "get-prop-count"
	fnGetProp        = "get-prop"
	fnGetPlayerStats = "get-player-stats"
)

// Tuple field names in contract responses
const (
	fieldGiver           = "giver"
	fieldReceiver        = "receiver"
	fieldMemo            = "memo"
	fieldReceived        = "received"
	fieldGiven           = "given"
	fieldReceivedIndexes = "received-indexes"
)

// Sentinel errors
var (
	// ErrMalformedResponse marks a successful call whose result is missing
	// expected fields. Callers treat it like any other failed lookup: skip
	// the record, never abort the batch.
	ErrMalformedResponse = errors.New("malformed contract response")
)

// Caller performs read-only contract calls. *stacks.Client satisfies this.
type Caller interface {
	CallReadOnly(ctx context.Context, call stacks.Call) (stacks.Value, error)
}

// Reader implements props.Reader against a deployed props contract
type Reader struct {
	caller   Caller
	contract string // fully qualified contract identifier
	sender   string // sender principal for calls with no player context
}

// NewReader creates a contract-backed reader. The sender principal is used
// as the call context for count and record lookups; per-player lookups use
// the player itself as sender.
func NewReader(caller Caller, contract, sender string) *Reader {
	return &Reader{
		caller:   caller,
		contract: contract,
		sender:   sender,
	}
}

// Compile-time interface check
var _ props.Reader = (*Reader)(nil)

// PropCount returns the authoritative total number of recorded props
func (r *Reader) PropCount(ctx context.Context) (uint64, error) {
	result, err := r.caller.CallReadOnly(ctx, stacks.Call{
		Contract: r.contract,
		Function: fnGetPropCount,
		Sender:   r.sender,
	})
	if err != nil {
		return 0, err
	}

	count, err := result.Uint()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetPropCount, err)
	}
	return count, nil
}

// Prop returns the record at the given index
func (r *Reader) Prop(ctx context.Context, index uint64) (props.Prop, error) {
	result, err := r.caller.CallReadOnly(ctx, stacks.Call{
		Contract: r.contract,
		Function: fnGetProp,
		Args:     []string{stacks.UintArg(index)},
		Sender:   r.sender,
	})
	if err != nil {
		return props.Prop{}, err
	}

	record, ok, err := result.Optional()
	if err != nil {
		return props.Prop{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetProp, err)
	}
	if !ok {
		return props.Prop{}, fmt.Errorf("%w: %s: no record at index %d", ErrMalformedResponse, fnGetProp, index)
	}

	giver, err := principalField(record, fieldGiver)
	if err != nil {
		return props.Prop{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetProp, err)
	}
	receiver, err := principalField(record, fieldReceiver)
	if err != nil {
		return props.Prop{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetProp, err)
	}

	// Memo is optional in older contract versions
	memo := ""
	if memoField, fieldErr := record.Field(fieldMemo); fieldErr == nil {
		if text, asciiErr := memoField.Ascii(); asciiErr == nil {
			memo = text
		}
	}

	return props.Prop{
		Index:    index,
		Giver:    giver,
		Receiver: receiver,
		Memo:     memo,
	}, nil
}

// PlayerStats returns a player's counters, with the player as the call's sender
func (r *Reader) PlayerStats(ctx context.Context, player string) (props.PlayerStats, error) {
	stats, err := r.playerStatsTuple(ctx, player)
	if err != nil {
		return props.PlayerStats{}, err
	}

	received, err := uintField(stats, fieldReceived)
	if err != nil {
		return props.PlayerStats{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetPlayerStats, err)
	}
	given, err := uintField(stats, fieldGiven)
	if err != nil {
		return props.PlayerStats{}, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetPlayerStats, err)
	}

	return props.PlayerStats{
		Player:   player,
		Received: received,
		Given:    given,
	}, nil
}

// ReceivedIndexes returns the ordered record indexes of props the player
// received, from the same stats tuple the contract exposes
func (r *Reader) ReceivedIndexes(ctx context.Context, player string) ([]uint64, error) {
	stats, err := r.playerStatsTuple(ctx, player)
	if err != nil {
		return nil, err
	}

	listField, err := stats.Field(fieldReceivedIndexes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetPlayerStats, err)
	}
	items, err := listField.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetPlayerStats, err)
	}

	indexes := make([]uint64, 0, len(items))
	for _, item := range items {
		index, err := item.Uint()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, fnGetPlayerStats, err)
		}
		indexes = append(indexes, index)
	}
	return indexes, nil
}

// playerStatsTuple performs the stats call and unwraps the tuple
func (r *Reader) playerStatsTuple(ctx context.Context, player string) (stacks.Value, error) {
	result, err := r.caller.CallReadOnly(ctx, stacks.Call{
		Contract: r.contract,
		Function: fnGetPlayerStats,
		Args:     []string{stacks.PrincipalArg(player)},
		Sender:   player,
	})
	if err != nil {
		return stacks.Value{}, err
	}

	// Some deployments wrap the stats tuple in an optional
	if inner, ok, optErr := result.Optional(); optErr == nil {
		if !ok {
			return stacks.Value{}, fmt.Errorf("%w: %s: no stats for %s", ErrMalformedResponse, fnGetPlayerStats, player)
		}
		return inner, nil
	}

	return result, nil
}

func principalField(tuple stacks.Value, name string) (string, error) {
	field, err := tuple.Field(name)
	if err != nil {
		return "", err
	}
	return field.Principal()
}

func uintField(tuple stacks.Value, name string) (uint64, error) {
	field, err := tuple.Field(name)
	if err != nil {
		return 0, err
	}
	return field.Uint()
}
