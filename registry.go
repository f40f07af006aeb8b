// Copyright 2024 by Zaber Technologies Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bson

import (
	"reflect"
)

// ClassNameKey is the reserved element name that marks a document as the
// encoding of an application-defined type.  Ordinary document encoding
// never produces it; the decoder treats any document containing it as an
// object to reconstruct.
const ClassNameKey = "$$__CLASS_NAME__$$"

// Coder is implemented by application types that serialize themselves.
// EncodeBSON returns the plain document representation of the value's
// state; the encoder injects the class marker alongside it.
type Coder interface {
	EncodeBSON() Doc
}

// Factory reconstructs an instance from its decoded plain document.  The
// document includes the class-marker element.
type Factory func(doc Doc) (any, error)

// Registry maps type names to reconstruction factories.  Register every
// type before concurrent decoding begins: the registry takes no locks, on
// the assumption of single-threaded registration at startup followed by
// read-only lookups.  Registering a name twice silently replaces the
// earlier factory; there is no removal.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates a type name with its reconstruction factory.  The
// name must match the Go type name of the Coder whose documents it
// reconstructs (see TypeName).
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// RegisterAll registers every entry of the given map, for bulk setup at
// process start.
func (r *Registry) RegisterAll(factories map[string]Factory) {
	for name, f := range factories {
		r.factories[name] = f
	}
}

func (r *Registry) lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// TypeName returns the name under which a value's type is identified in
// the class marker: the Go type name with any pointer indirection removed.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// encodeObject encodes a Coder as a document with the class-marker element
// appended after the value's own elements.  The Coder itself, not its
// document representation, is recorded as the parent in traversal frames.
func (e *Encoder) encodeObject(out []byte, c Coder, stack []TraversalStep) ([]byte, error) {
	values := c.EncodeBSON()
	doc := make(Doc, 0, len(values)+1)
	doc = append(doc, values...)
	doc = append(doc, Elem{Key: ClassNameKey, Value: TypeName(c)})
	return e.encodeDocument(out, doc, c, stack)
}

// decodeObject hands a marker-carrying document to the registered factory.
// The factory receives the full document, marker included.
func (d *Decoder) decodeObject(doc Doc, name string) (any, error) {
	if d.registry == nil {
		return nil, &MissingClassDefinitionError{Name: name}
	}
	f, ok := d.registry.lookup(name)
	if !ok {
		return nil, &MissingClassDefinitionError{Name: name}
	}
	return f(doc)
}
