// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fatal failure conditions of the codec.  All of
// them surface to the caller of the top-level entry point, wrapped with
// positional context; match with errors.Is.
var (
	// ErrInvalidName is returned when an element name contains a NUL
	// byte.  NUL delimits names on the wire, so accepting one would
	// terminate the name early.
	ErrInvalidName = errors.New("element names may not contain NUL bytes")

	// ErrIntegerOverflow is returned when an integer value is outside
	// the range representable by any of the three integer wire widths.
	ErrIntegerOverflow = errors.New("integer exceeds BSON representable range")

	// ErrMalformedDocument is returned when a buffer is truncated or its
	// terminator byte is not NUL.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnknownElementType is returned when a decoded tag byte is
	// outside the recognized set.  There is no skip-and-continue
	// recovery.
	ErrUnknownElementType = errors.New("unknown element type")

	// ErrInvalidUTF8 is returned when a string payload is not valid
	// UTF-8.  Element names are exempt and fall back to raw bytes.
	ErrInvalidUTF8 = errors.New("string value is not valid UTF-8")
)

// UnknownSerializerError records a value the encoder could not classify
// when no OnUnknown hook was configured.
type UnknownSerializerError struct {
	Key   string
	Value any
}

func (e *UnknownSerializerError) Error() string {
	return fmt.Sprintf("unable to serialize: key %q value: %v type: %T", e.Key, e.Value, e.Value)
}

// MissingClassDefinitionError records a decoded class marker naming a type
// that is not registered with the decoder's Registry.
type MissingClassDefinitionError struct {
	Name string
}

func (e *MissingClassDefinitionError) Error() string {
	return fmt.Sprintf("no class definition for class %s", e.Name)
}

// MissingTimezoneWarning is the single non-fatal condition: a time value
// carried no explicit time zone.  It is delivered through the Encoder's
// OnWarning hook while encoding proceeds using the value's exact instant.
type MissingTimezoneWarning struct {
	Key string
}

func (w *MissingTimezoneWarning) Error() string {
	return fmt.Sprintf("time value for key %q has no explicit time zone, assuming UTC", w.Key)
}
