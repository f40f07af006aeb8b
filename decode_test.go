// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func checkDoc(t *testing.T, v any, expect Doc) {
	t.Helper()
	doc, ok := v.(Doc)
	if !ok {
		t.Fatalf("expected Doc, got %T", v)
	}
	if !reflect.DeepEqual(doc, expect) {
		t.Fatalf("decoded document doesn't match:\nGot:    %#v\nExpect: %#v", doc, expect)
	}
}

// TestUnmarshal covers the decoder's tag dispatch and its strictness about
// malformed input: truncation, bad terminators and unrecognized tags are
// all fatal with no partial result.
func TestUnmarshal(t *testing.T) {
	t.Parallel()

	cases := []unmarshalTestCase{
		{
			label: "empty document",
			input: "0500000000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{})
			},
		},
		{
			label: "false",
			input: "0b000000086b6579000000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"key", false}})
			},
		},
		{
			label: "true",
			input: "0b000000086b6579000100",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"key", true}})
			},
		},
		{
			label: "nonzero boolean byte is true",
			input: "0b000000086b6579000200",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"key", true}})
			},
		},
		{
			label: "null",
			input: "080000000a610000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", nil}})
			},
		},
		{
			label: "double",
			input: "10000000016100000000000000f83f00",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", 1.5}})
			},
		},
		{
			label: "string",
			input: "0e00000002610002000000620000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", "b"}})
			},
		},
		{
			label: "string containing NUL is allowed",
			input: "10000000026100040000006200630000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", "b\x00c"}})
			},
		},
		{
			label: "int32",
			input: "0c0000001061000500000000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", int32(5)}})
			},
		},
		{
			label: "int64",
			input: "10000000126100010000000000000000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", int64(1)}})
			},
		},
		{
			label: "uint64",
			input: "10000000116100ffffffffffffffff00",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", uint64(18446744073709551615)}})
			},
		},
		{
			label: "datetime decodes as UTC time",
			input: "10000000096100e80300000000000000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", time.UnixMilli(1000).UTC()}})
			},
		},
		{
			label: "generic binary",
			input: "0f0000000561000200000000616200",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", []byte("ab")}})
			},
		},
		{
			label: "binary subtype 4 decodes as uuid",
			input: "1d0000000561001000000004000102030405060708090a0b0c0d0e0f00",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", uuid.UUID{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}}})
			},
		},
		{
			label: "legacy binary subtype 3 decodes as uuid",
			input: "1d0000000561001000000003000102030405060708090a0b0c0d0e0f00",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", uuid.UUID{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}}})
			},
		},
		{
			label: "unrecognized binary subtype decodes as raw bytes",
			input: "0f0000000561000200000080616200",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", []byte("ab")}})
			},
		},
		{
			label: "objectid decodes as hex string",
			input: "140000000761000102030405060708090a0b0c00",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", "0102030405060708090a0b0c"}})
			},
		},
		{
			label: "nested document",
			input: "1100000003640009000000086100010000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"d", Doc{{"a", true}}}})
			},
		},
		{
			label: "array discards positional names",
			input: "1100000004610009000000086100010000",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"a", []any{true}}})
			},
		},
		{
			label: "invalid UTF-8 name falls back to raw bytes",
			input: "0900000008ff000100",
			check: func(t *testing.T, v any) {
				checkDoc(t, v, Doc{{"\xff", true}})
			},
		},
		// Malformed input
		{
			label: "terminator byte not NUL",
			input: "0b000000086b6579000001",
			errIs: ErrMalformedDocument,
		},
		{
			label: "truncated buffer",
			input: "0b00000008",
			errIs: ErrMalformedDocument,
		},
		{
			label: "truncated length prefix",
			input: "0300",
			errIs: ErrMalformedDocument,
		},
		{
			label: "length below minimum",
			input: "0400000000",
			errIs: ErrMalformedDocument,
		},
		{
			label: "truncated element payload",
			input: "080000000861610000",
			errIs: ErrMalformedDocument,
		},
		{
			label: "nested document overruns parent",
			input: "10000000036100090000000861000100",
			errIs: ErrMalformedDocument,
		},
		{
			label: "string missing its terminator",
			input: "0e00000002610002000000610100",
			errIs: ErrMalformedDocument,
		},
		{
			label: "uuid binary with wrong length",
			input: "0f0000000561000200000004616200",
			errIs: ErrMalformedDocument,
		},
		{
			label: "invalid UTF-8 string value",
			input: "0e00000002610002000000ff0000",
			errIs: ErrInvalidUTF8,
		},
		// Unrecognized tags are fatal, no skip-and-continue
		{
			label: "undefined tag 0x06",
			input: "0800000006610000",
			errIs: ErrUnknownElementType,
		},
		{
			label: "regex tag 0x0B",
			input: "080000000b610000",
			errIs: ErrUnknownElementType,
		},
	}

	testWithUnmarshal(t, cases)
}
