// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"encoding/binary"
)

// BSON element type tags.  This is the full recognized set; any other tag
// byte fails decoding with ErrUnknownElementType.
const (
	bsonDouble   = 0x01
	bsonString   = 0x02
	bsonDocument = 0x03
	bsonArray    = 0x04
	bsonBinary   = 0x05
	bsonObjectID = 0x07
	bsonBoolean  = 0x08
	bsonDateTime = 0x09
	bsonNull     = 0x0A
	bsonInt32    = 0x10
	bsonUint64   = 0x11
	bsonInt64    = 0x12
)

// Binary subtypes.  Only the generic subtype is produced for []byte; UUIDs
// use subtype 4 on encode and accept the legacy subtype 3 on decode.
const (
	subtypeGeneric    = 0x00
	subtypeUUIDLegacy = 0x03
	subtypeUUID       = 0x04
)

var emptyLength = []byte{0x00, 0x00, 0x00, 0x00}

// Elem is a single (name, value) pair of a document.
type Elem struct {
	Key   string
	Value any
}

// Doc is an insertion-ordered BSON document.  Decoded documents are always
// Docs; element order is wire order.
type Doc []Elem

// Lookup returns the value of the first element with the given key.
func (d Doc) Lookup(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Map returns the document as a plain map, discarding element order.
func (d Doc) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, e := range d {
		m[e.Key] = e.Value
	}
	return m
}

// TraversalStep is one frame of the ancestor-path stack passed to a
// KeyOrderFunc: the container being iterated (or the Coder it came from)
// and the key under which the current nested container was reached.  Key is
// a string for documents and an int for array positions.
type TraversalStep struct {
	Parent any
	Key    any
}

// KeyOrderFunc overrides the key iteration order of a document during
// encoding.  It receives the container and the current traversal stack and
// returns the keys to encode, in order.  The returned keys are used
// verbatim; completeness and uniqueness are the caller's responsibility.
type KeyOrderFunc func(container any, stack []TraversalStep) []string

// OnUnknownFunc substitutes a replacement for a value the encoder cannot
// classify.  The replacement is re-dispatched in full.
type OnUnknownFunc func(v any) any

// OnWarningFunc receives non-fatal conditions raised during encoding, such
// as MissingTimezoneWarning.
type OnWarningFunc func(w error)

// Encoder converts document-shaped Go values into BSON bytes.  The zero
// value is usable; hooks are optional.
type Encoder struct {
	keyOrder  KeyOrderFunc
	onUnknown OnUnknownFunc
	onWarning OnWarningFunc
}

// NewEncoder returns a new encoder with no hooks configured.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// KeyOrder sets the document key-ordering hook.
func (e *Encoder) KeyOrder(f KeyOrderFunc) {
	e.keyOrder = f
}

// OnUnknown sets the unknown-value fallback hook.  Without it,
// unclassifiable values fail encoding with an UnknownSerializerError.
func (e *Encoder) OnUnknown(f OnUnknownFunc) {
	e.onUnknown = f
}

// OnWarning sets the hook that receives non-fatal encoding conditions.
func (e *Encoder) OnWarning(f OnWarningFunc) {
	e.onWarning = f
}

// Encode appends the BSON encoding of v to buf and returns the extended
// buffer, just like append.  v must be document-shaped (Doc, bson.D,
// a string-keyed map) or implement Coder.
func (e *Encoder) Encode(v any, buf []byte) ([]byte, error) {
	if c, ok := v.(Coder); ok {
		return e.encodeObject(buf, c, nil)
	}
	if isDocShaped(v) {
		return e.encodeDocument(buf, v, nil, nil)
	}
	return nil, &UnknownSerializerError{Key: "", Value: v}
}

// Decoder converts BSON bytes back into a value tree.  A Registry may be
// attached to reconstruct documents carrying a class marker.
type Decoder struct {
	registry *Registry
}

// NewDecoder returns a new decoder with no registry attached.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Registry attaches the registry consulted for class-marker documents.
func (d *Decoder) Registry(r *Registry) {
	d.registry = r
}

// Decode converts a BSON document into a Doc, or into a reconstructed
// object if the document carries a class marker and the attached registry
// knows the named type.
func (d *Decoder) Decode(data []byte) (any, error) {
	v, _, err := d.readDocument(data, 0, false)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Marshal returns the BSON encoding of v using a default encoder with no
// hooks configured.
func Marshal(v any) ([]byte, error) {
	return NewEncoder().Encode(v, make([]byte, 0, 256))
}

// Unmarshal decodes a BSON document using a default decoder with no
// registry; documents carrying a class marker fail with a
// MissingClassDefinitionError.
func Unmarshal(data []byte) (any, error) {
	return NewDecoder().Decode(data)
}

func overwriteLength(out []byte, pos int, n int) {
	binary.LittleEndian.PutUint32(out[pos:pos+4], uint32(n))
}
