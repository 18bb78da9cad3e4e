/*
Package structured provides a language-neutral tagged-union value type
for the dynamic payloads that flow through the gateway: the JSON a
child task emits between its stdout delimiters, and the data field of
signed intent messages.

A Value is one of: null, boolean, number, string, array, or a
string-keyed mapping that preserves member order. It deliberately is
not map[string]any: the gateway needs one representation that decodes
JSON without losing member order and encodes to deterministic CBOR so
the exact signed bytes can be re-derived by an independent verifier.

Numbers keep their original JSON literal (via json.Number) until they
are encoded, so "1" stays an integer and never silently becomes "1.0".
*/
package structured
