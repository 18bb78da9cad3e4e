package structured

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// cborEnc uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The
// same logical value always produces identical bytes, which is what
// lets a verifier re-derive the signed payload independently.
var cborEnc cbor.EncMode

var cborDec cbor.DecMode

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("structured: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("structured: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR implements cbor.Marshaler. Integral numbers encode as
// CBOR integers, all others as float64. Mapping keys are sorted by the
// deterministic encoder; the stored member order is a JSON-level
// property and does not affect canonical bytes.
func (v Value) MarshalCBOR() ([]byte, error) {
	plain, err := v.canonical()
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(plain)
}

// UnmarshalCBOR implements cbor.Unmarshaler. Mapping member order is
// the encoded (sorted) key order.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := cborDec.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) canonical() (any, error) {
	switch v.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.boolean, nil
	case KindNumber:
		if i, err := v.num.Int64(); err == nil {
			return i, nil
		}
		f, err := v.num.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q: %w", v.num, err)
		}
		return f, nil
	case KindString:
		return v.str, nil
	case KindArray:
		items := make([]any, len(v.items))
		for i, item := range v.items {
			plain, err := item.canonical()
			if err != nil {
				return nil, err
			}
			items[i] = plain
		}
		return items, nil
	case KindMap:
		m := make(map[string]any, len(v.members))
		for _, member := range v.members {
			if _, dup := m[member.Key]; dup {
				return nil, fmt.Errorf("duplicate mapping key %q", member.Key)
			}
			plain, err := member.Value.canonical()
			if err != nil {
				return nil, err
			}
			m[member.Key] = plain
		}
		return m, nil
	default:
		return nil, fmt.Errorf("invalid value kind %d", v.kind)
	}
}

// FromAny converts a plain Go value (as produced by encoding/json or
// CBOR decoding into any) to a Value. Map keys are sorted since Go map
// iteration order would otherwise leak into the result.
func FromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case int64:
		return Int(t), nil
	case uint64:
		return Number(json.Number(fmt.Sprintf("%d", t))), nil
	case float64:
		b, err := json.Marshal(t)
		if err != nil {
			return Value{}, err
		}
		return Number(json.Number(b)), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		members := make([]Member, 0, len(t))
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: k, Value: v})
		}
		return Map(members...), nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T", raw)
	}
}
