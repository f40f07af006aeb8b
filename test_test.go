// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	driver "go.mongodb.org/mongo-driver/bson"
)

type marshalTestCase struct {
	label  string
	input  any
	output string // hex
	errIs  error
	errStr string
}

func testWithMarshal(t *testing.T, cases []marshalTestCase) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			got, err := Marshal(c.input)
			if c.errIs != nil || c.errStr != "" {
				if err == nil {
					t.Fatalf("expected error but got none; output: %v", hex.EncodeToString(got))
				}
				if c.errIs != nil && !errors.Is(err, c.errIs) {
					t.Errorf("expected error matching %v, got %v", c.errIs, err)
				}
				if c.errStr != "" && !strings.Contains(err.Error(), c.errStr) {
					t.Errorf("expected error with '%s', but got %v", c.errStr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expect, err := hex.DecodeString(strings.ToLower(c.output))
			if err != nil {
				t.Fatalf("error decoding test output: %v", err)
			}
			if !bytes.Equal(expect, got) {
				t.Fatalf("Marshal doesn't match expected:\nGot:    %v\nExpect: %v", hex.EncodeToString(got), c.output)
			}
		})
	}
}

type unmarshalTestCase struct {
	label  string
	input  string // hex
	errIs  error
	errStr string
	check  func(t *testing.T, v any)
}

func testWithUnmarshal(t *testing.T, cases []unmarshalTestCase) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			data, err := hex.DecodeString(strings.ToLower(c.input))
			if err != nil {
				t.Fatalf("error decoding test input: %v", err)
			}
			v, err := Unmarshal(data)
			if c.errIs != nil || c.errStr != "" {
				if err == nil {
					t.Fatalf("expected error but got none; decoded: %v", v)
				}
				if c.errIs != nil && !errors.Is(err, c.errIs) {
					t.Errorf("expected error matching %v, got %v", c.errIs, err)
				}
				if c.errStr != "" && !strings.Contains(err.Error(), c.errStr) {
					t.Errorf("expected error with '%s', but got %v", c.errStr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.check != nil {
				c.check(t, v)
			}
		})
	}
}

// convertWithGoDriver produces reference bytes with the MongoDB Go driver
// for the type surface the two encoders share.
func convertWithGoDriver(t *testing.T, v any) []byte {
	t.Helper()
	out, err := driver.Marshal(v)
	if err != nil {
		t.Fatalf("mongo go driver error: %v", err)
	}
	return out
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	out, err := Marshal(v)
	if err != nil {
		t.Fatalf("unexpected Marshal error: %v", err)
	}
	return out
}

func mustUnmarshal(t *testing.T, data []byte) any {
	t.Helper()
	v, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unexpected Unmarshal error: %v", err)
	}
	return v
}
