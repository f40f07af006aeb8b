// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// readDocument decodes one length-prefixed document starting at base and
// returns the decoded value along with the cursor position just past it, so
// callers can resume parsing sibling elements.  Documents decode to Doc (or
// to a reconstructed object when the class marker is present); arrays
// decode to []any, discarding the positional element names.
func (d *Decoder) readDocument(data []byte, base int, asArray bool) (any, int, error) {
	if base+4 > len(data) {
		return nil, 0, fmt.Errorf("%w: truncated length prefix", ErrMalformedDocument)
	}
	length := int(int32(binary.LittleEndian.Uint32(data[base : base+4])))
	if length < 5 || base+length > len(data) {
		return nil, 0, fmt.Errorf("%w: document length %d out of bounds", ErrMalformedDocument, length)
	}
	end := base + length
	if data[end-1] != 0x00 {
		return nil, 0, fmt.Errorf("%w: missing null terminator", ErrMalformedDocument)
	}

	doc := Doc{}
	arr := []any{}

	pos := base + 4
	for pos < end-1 {
		tag := data[pos]
		pos++

		// Element names are NUL-terminated with no length prefix.  The
		// bytes are taken as-is: invalid UTF-8 in a name degrades to its
		// raw-byte identity rather than erroring.
		nameLen := bytes.IndexByte(data[pos:end], 0x00)
		if nameLen < 0 {
			return nil, 0, fmt.Errorf("%w: unterminated element name", ErrMalformedDocument)
		}
		name := string(data[pos : pos+nameLen])
		pos += nameLen + 1

		value, next, err := d.readValue(data, pos, end, tag)
		if err != nil {
			return nil, 0, err
		}
		pos = next

		if asArray {
			arr = append(arr, value)
		} else {
			doc = append(doc, Elem{Key: name, Value: value})
		}
	}
	if pos != end-1 {
		return nil, 0, fmt.Errorf("%w: element overruns document", ErrMalformedDocument)
	}

	if asArray {
		return arr, end, nil
	}
	if marker, ok := doc.Lookup(ClassNameKey); ok {
		if name, ok := marker.(string); ok {
			obj, err := d.decodeObject(doc, name)
			if err != nil {
				return nil, 0, err
			}
			return obj, end, nil
		}
	}
	return doc, end, nil
}

// readValue decodes one tag-dispatched payload and returns the value and
// the cursor position past it.  Payloads may extend at most to end-1, the
// enclosing document's terminator.
func (d *Decoder) readValue(data []byte, pos, end int, tag byte) (any, int, error) {
	limit := end - 1

	need := func(n int) error {
		if pos+n > limit {
			return fmt.Errorf("%w: truncated element payload", ErrMalformedDocument)
		}
		return nil
	}

	switch tag {
	case bsonDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		bits := binary.LittleEndian.Uint64(data[pos : pos+8])
		return math.Float64frombits(bits), pos + 8, nil

	case bsonString:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		strLen := int(int32(binary.LittleEndian.Uint32(data[pos : pos+4])))
		if strLen < 1 || pos+4+strLen > limit {
			return nil, 0, fmt.Errorf("%w: bad string length %d", ErrMalformedDocument, strLen)
		}
		if data[pos+4+strLen-1] != 0x00 {
			return nil, 0, fmt.Errorf("%w: string missing null terminator", ErrMalformedDocument)
		}
		b := data[pos+4 : pos+4+strLen-1]
		if !utf8.Valid(b) {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidUTF8, b)
		}
		return string(b), pos + 4 + strLen, nil

	case bsonDocument:
		return d.readDocument(data, pos, false)

	case bsonArray:
		return d.readDocument(data, pos, true)

	case bsonBinary:
		if err := need(5); err != nil {
			return nil, 0, err
		}
		binLen := int(int32(binary.LittleEndian.Uint32(data[pos : pos+4])))
		subtype := data[pos+4]
		if binLen < 0 || pos+5+binLen > limit {
			return nil, 0, fmt.Errorf("%w: bad binary length %d", ErrMalformedDocument, binLen)
		}
		payload := data[pos+5 : pos+5+binLen]
		next := pos + 5 + binLen
		if subtype == subtypeUUID || subtype == subtypeUUIDLegacy {
			id, err := uuid.FromBytes(payload)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: binary subtype 0x%02X with length %d", ErrMalformedDocument, subtype, binLen)
			}
			return id, next, nil
		}
		return bytes.Clone(payload), next, nil

	case bsonObjectID:
		if err := need(12); err != nil {
			return nil, 0, err
		}
		return hex.EncodeToString(data[pos : pos+12]), pos + 12, nil

	case bsonBoolean:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[pos] != 0x00, pos + 1, nil

	case bsonDateTime:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		millis := int64(binary.LittleEndian.Uint64(data[pos : pos+8]))
		return time.UnixMilli(millis).UTC(), pos + 8, nil

	case bsonNull:
		return nil, pos, nil

	case bsonInt32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(binary.LittleEndian.Uint32(data[pos : pos+4])), pos + 4, nil

	case bsonUint64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return binary.LittleEndian.Uint64(data[pos : pos+8]), pos + 8, nil

	case bsonInt64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint64(data[pos : pos+8])), pos + 8, nil

	default:
		return nil, 0, fmt.Errorf("%w: 0x%02X", ErrUnknownElementType, tag)
	}
}
