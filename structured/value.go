package structured

import (
	"encoding/json"
	"strconv"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindMap
)

// Member is one key/value pair of a KindMap value. Member order is
// significant and preserved through JSON round trips.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable tagged-union dynamic value. The zero Value is
// null.
type Value struct {
	kind    Kind
	boolean bool
	num     json.Number
	str     string
	items   []Value
	members []Member
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number returns a numeric value carrying the given JSON literal.
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// Int returns a numeric value for an integer.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array returns an array value with the given items.
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Map returns a mapping value with the given members, in order.
func Map(members ...Member) Value { return Value{kind: KindMap, members: members} }

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload. Valid only for KindBool.
func (v Value) Bool() bool { return v.boolean }

// Number returns the numeric payload. Valid only for KindNumber.
func (v Value) Number() json.Number { return v.num }

// Text returns the string payload. Valid only for KindString.
func (v Value) Text() string { return v.str }

// Items returns the array items. Valid only for KindArray.
func (v Value) Items() []Value { return v.items }

// Members returns the mapping members in order. Valid only for KindMap.
func (v Value) Members() []Member { return v.members }

// Get looks up a mapping member by key. The second return is false if
// the value is not a mapping or the key is absent. If a key appears
// more than once, the first occurrence wins.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}
