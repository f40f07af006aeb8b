// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// encodeValue appends one complete element (tag, name, payload) for v.
// Dispatch order follows the codec's priority rule: booleans first, then
// integers by the numeric-range rule, then the explicit width markers
// int32/int64/uint64, then the remaining scalar and container shapes.
func (e *Encoder) encodeValue(out []byte, key string, v any, stack []TraversalStep) ([]byte, error) {
	switch v := v.(type) {
	case bool:
		return appendBooleanElement(out, key, v)
	case int:
		return appendNarrowestIntElement(out, key, int64(v))
	case int8:
		return appendNarrowestIntElement(out, key, int64(v))
	case int16:
		return appendNarrowestIntElement(out, key, int64(v))
	case uint8:
		return appendNarrowestIntElement(out, key, int64(v))
	case uint16:
		return appendNarrowestIntElement(out, key, int64(v))
	case uint32:
		return appendNarrowestIntElement(out, key, int64(v))
	case uint:
		if uint64(v) > math.MaxInt64 {
			return appendUint64Element(out, key, uint64(v))
		}
		return appendNarrowestIntElement(out, key, int64(v))
	case int32:
		// Explicit width marker: encode directly, bypassing the range rule.
		return appendInt32Element(out, key, v)
	case int64:
		return appendInt64Element(out, key, v)
	case uint64:
		return appendUint64Element(out, key, v)
	case *big.Int:
		return e.appendBigIntElement(out, key, v)
	case float64:
		return appendDoubleElement(out, key, v)
	case float32:
		return appendDoubleElement(out, key, float64(v))
	case *big.Float:
		// Narrowed to double; precision loss is accepted, not reported.
		f, _ := v.Float64()
		return appendDoubleElement(out, key, f)
	case primitive.Decimal128:
		// Decimal128 strings are always float-parseable ("NaN" and
		// "Infinity" included); out-of-range values saturate to ±Inf.
		f, _ := strconv.ParseFloat(v.String(), 64)
		return appendDoubleElement(out, key, f)
	case string:
		return appendStringElement(out, key, v)
	case []byte:
		return appendBinaryElement(out, key, subtypeGeneric, v)
	case uuid.UUID:
		return appendBinaryElement(out, key, subtypeUUID, v[:])
	case primitive.ObjectID:
		return appendObjectIDElement(out, key, v)
	case time.Time:
		return e.appendTimeElement(out, key, v)
	case primitive.DateTime:
		return appendDateTimeElement(out, key, int64(v))
	case nil:
		return appendHeader(out, key, bsonNull)
	case Doc, map[string]any, primitive.D, primitive.M:
		return e.appendDocumentElement(out, key, v, stack)
	case []any:
		return e.appendArrayElement(out, key, reflect.ValueOf(v), stack)
	case primitive.A:
		return e.appendArrayElement(out, key, reflect.ValueOf(v), stack)
	case Coder:
		out, err := appendHeader(out, key, bsonDocument)
		if err != nil {
			return nil, err
		}
		return e.encodeObject(out, v, stack)
	default:
		return e.encodeReflect(out, key, v, stack)
	}
}

// encodeReflect classifies values whose concrete type is not in the closed
// switch above: named scalar types, other slice/array and string-keyed map
// types, and pointers.  Anything still unclassified goes to the OnUnknown
// hook, or fails.
func (e *Encoder) encodeReflect(out []byte, key string, v any, stack []TraversalStep) ([]byte, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return appendBooleanElement(out, key, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16:
		return appendNarrowestIntElement(out, key, rv.Int())
	case reflect.Int32:
		return appendInt32Element(out, key, int32(rv.Int()))
	case reflect.Int64:
		return appendInt64Element(out, key, rv.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return appendNarrowestIntElement(out, key, int64(rv.Uint()))
	case reflect.Uint, reflect.Uintptr:
		if rv.Uint() > math.MaxInt64 {
			return appendUint64Element(out, key, rv.Uint())
		}
		return appendNarrowestIntElement(out, key, int64(rv.Uint()))
	case reflect.Uint64:
		return appendUint64Element(out, key, rv.Uint())
	case reflect.Float32, reflect.Float64:
		return appendDoubleElement(out, key, rv.Float())
	case reflect.String:
		return appendStringElement(out, key, rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return appendBinaryElement(out, key, subtypeGeneric, b)
		}
		return e.appendArrayElement(out, key, rv, stack)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return e.appendDocumentElement(out, key, v, stack)
		}
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return appendHeader(out, key, bsonNull)
		}
		return e.encodeValue(out, key, rv.Elem().Interface(), stack)
	}

	if e.onUnknown != nil {
		return e.encodeValue(out, key, e.onUnknown(v), stack)
	}
	return nil, &UnknownSerializerError{Key: key, Value: v}
}

// encodeDocument appends the length-prefixed, NUL-terminated element
// sequence for a document-shaped container.  parent is the value recorded
// in traversal frames in place of the container itself; it is non-nil only
// when the container was produced by a Coder.
func (e *Encoder) encodeDocument(out []byte, container any, parent any, stack []TraversalStep) ([]byte, error) {
	if parent == nil {
		parent = container
	}

	keys := docKeys(container)
	if e.keyOrder != nil {
		keys = e.keyOrder(container, stack)
	}

	lengthPos := len(out)
	out = append(out, emptyLength...)

	var err error
	for _, key := range keys {
		value := docLookup(container, key)
		stack = append(stack, TraversalStep{Parent: parent, Key: key})
		out, err = e.encodeValue(out, key, value, stack)
		stack = stack[:len(stack)-1]
		if err != nil {
			return nil, err
		}
	}

	out = append(out, 0x00)
	overwriteLength(out, lengthPos, len(out)-lengthPos)
	return out, nil
}

// encodeArray is structurally identical to encodeDocument but iterates
// positionally and derives element names from the zero-based index.  The
// key-ordering hook is not consulted for arrays.
func (e *Encoder) encodeArray(out []byte, seq reflect.Value, stack []TraversalStep) ([]byte, error) {
	lengthPos := len(out)
	out = append(out, emptyLength...)

	var err error
	for i := 0; i < seq.Len(); i++ {
		stack = append(stack, TraversalStep{Parent: seq.Interface(), Key: i})
		out, err = e.encodeValue(out, strconv.Itoa(i), seq.Index(i).Interface(), stack)
		stack = stack[:len(stack)-1]
		if err != nil {
			return nil, err
		}
	}

	out = append(out, 0x00)
	overwriteLength(out, lengthPos, len(out)-lengthPos)
	return out, nil
}

func (e *Encoder) appendDocumentElement(out []byte, key string, v any, stack []TraversalStep) ([]byte, error) {
	out, err := appendHeader(out, key, bsonDocument)
	if err != nil {
		return nil, err
	}
	return e.encodeDocument(out, v, nil, stack)
}

func (e *Encoder) appendArrayElement(out []byte, key string, seq reflect.Value, stack []TraversalStep) ([]byte, error) {
	out, err := appendHeader(out, key, bsonArray)
	if err != nil {
		return nil, err
	}
	return e.encodeArray(out, seq, stack)
}

// appendTimeElement encodes a UTC datetime as signed epoch milliseconds,
// truncating sub-millisecond precision.  A value in the ambient local zone
// carries no explicit zone choice, which raises the codec's single
// non-fatal condition.
func (e *Encoder) appendTimeElement(out []byte, key string, t time.Time) ([]byte, error) {
	if t.Location() == time.Local && e.onWarning != nil {
		e.onWarning(&MissingTimezoneWarning{Key: key})
	}
	return appendDateTimeElement(out, key, t.UnixMilli())
}

// appendBigIntElement applies the numeric-range rule to an
// arbitrary-precision integer, the one integer source that can actually
// overflow the wire format.
func (e *Encoder) appendBigIntElement(out []byte, key string, v *big.Int) ([]byte, error) {
	if v.IsInt64() {
		return appendNarrowestIntElement(out, key, v.Int64())
	}
	if v.IsUint64() {
		return appendUint64Element(out, key, v.Uint64())
	}
	return nil, fmt.Errorf("%w: key %q value %s", ErrIntegerOverflow, key, v.String())
}

// docKeys returns the natural key order of a document-shaped container:
// insertion order for Doc and bson.D, sorted order for maps (Go maps have
// no insertion order to preserve).
func docKeys(container any) []string {
	switch c := container.(type) {
	case Doc:
		keys := make([]string, len(c))
		for i, e := range c {
			keys[i] = e.Key
		}
		return keys
	case primitive.D:
		keys := make([]string, len(c))
		for i, e := range c {
			keys[i] = e.Key
		}
		return keys
	default:
		rv := reflect.ValueOf(container)
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return keys
	}
}

func docLookup(container any, key string) any {
	switch c := container.(type) {
	case Doc:
		v, _ := c.Lookup(key)
		return v
	case primitive.D:
		for _, e := range c {
			if e.Key == key {
				return e.Value
			}
		}
		return nil
	default:
		rv := reflect.ValueOf(container).MapIndex(reflect.ValueOf(key))
		if !rv.IsValid() {
			return nil
		}
		return rv.Interface()
	}
}

func isDocShaped(v any) bool {
	switch v.(type) {
	case Doc, primitive.D:
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// Scalar element appends, bsoncore style: each writes tag, C-string name,
// then the fixed-width or length-prefixed payload.

// appendCString rejects names containing NUL, the in-band terminator.
func appendCString(dst []byte, s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, s)
		}
	}
	dst = append(dst, s...)
	return append(dst, 0x00), nil
}

func appendHeader(dst []byte, key string, tag byte) ([]byte, error) {
	return appendCString(append(dst, tag), key)
}

func appendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func appendInt64(dst []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

// appendString emits int32(len+1), the UTF-8 bytes, and a trailing NUL.
// Unlike names, string payloads may contain NUL bytes.
func appendString(dst []byte, s string) []byte {
	dst = appendInt32(dst, int32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0x00)
}

func appendDoubleElement(dst []byte, key string, f float64) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonDouble)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f)), nil
}

func appendStringElement(dst []byte, key, s string) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonString)
	if err != nil {
		return nil, err
	}
	return appendString(dst, s), nil
}

func appendBinaryElement(dst []byte, key string, subtype byte, b []byte) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonBinary)
	if err != nil {
		return nil, err
	}
	dst = appendInt32(dst, int32(len(b)))
	dst = append(dst, subtype)
	return append(dst, b...), nil
}

func appendObjectIDElement(dst []byte, key string, oid primitive.ObjectID) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonObjectID)
	if err != nil {
		return nil, err
	}
	return append(dst, oid[:]...), nil
}

func appendBooleanElement(dst []byte, key string, b bool) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonBoolean)
	if err != nil {
		return nil, err
	}
	if b {
		return append(dst, 0x01), nil
	}
	return append(dst, 0x00), nil
}

func appendDateTimeElement(dst []byte, key string, millis int64) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonDateTime)
	if err != nil {
		return nil, err
	}
	return appendInt64(dst, millis), nil
}

func appendInt32Element(dst []byte, key string, v int32) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonInt32)
	if err != nil {
		return nil, err
	}
	return appendInt32(dst, v), nil
}

func appendInt64Element(dst []byte, key string, v int64) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonInt64)
	if err != nil {
		return nil, err
	}
	return appendInt64(dst, v), nil
}

func appendUint64Element(dst []byte, key string, v uint64) ([]byte, error) {
	dst, err := appendHeader(dst, key, bsonUint64)
	if err != nil {
		return nil, err
	}
	return binary.LittleEndian.AppendUint64(dst, v), nil
}

// appendNarrowestIntElement applies the numeric-range rule: values that fit
// in int32 use the int32 tag, everything else the int64 tag.  Callers
// handle the uint64 branch before converting to int64.
func appendNarrowestIntElement(dst []byte, key string, v int64) ([]byte, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return appendInt64Element(dst, key, v)
	}
	return appendInt32Element(dst, key, int32(v))
}
