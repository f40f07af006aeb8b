// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bson is a codec for the BSON wire format
// (http://bsonspec.org/#/specification) with a deliberately reduced type
// surface: exactly the primitive types needed for cross-language data
// exchange.  The following types are unsupported, because for data exchange
// purposes they're over-engineered:
//
//	0x06 (Undefined)
//	0x0B (Regex - exactly which flavor do you want?  Better let higher
//	      level programmers make that decision.)
//	0x0C (DBPointer)
//	0x0D (JavaScript code)
//	0x0E (Symbol)
//	0x0F (JS w/ scope)
//	0x11 (MongoDB-specific timestamp; the tag is used for uint64 instead)
//
// For binaries, only the default 0x00 subtype and the UUID subtypes
// 0x03/0x04 are supported.
//
// # Encoding
//
// Marshal converts a document-shaped Go value (Doc, map[string]any, bson.D,
// bson.M, or a type implementing Coder) into BSON bytes.  Plain Go integers
// are encoded in the narrowest lossless wire width; int32, int64 and uint64
// act as explicit width markers and encode directly.  An Encoder offers two
// per-call hooks: KeyOrder overrides the key iteration order of each nested
// document (receiving the container and the ancestor-path traversal stack),
// and OnUnknown substitutes a replacement for any value the dispatcher
// cannot classify.
//
// # Decoding
//
// Unmarshal converts BSON bytes back into a value tree: documents become
// insertion-ordered Docs, arrays become []any slices.  Application types
// that implement Coder round-trip through a Registry: the encoder injects a
// reserved class-marker element, and a Decoder carrying the registry
// reconstructs an instance via the registered factory without the caller
// naming the type at decode time.
//
// # Testing
//
// The codec's output is compared byte-for-byte against reference output
// from the MongoDB Go driver for the overlapping type surface, and the
// decode/encode loop is fuzz-tested.
package bson
