// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"

	"github.com/z5labs/fileserver/config/key"
)

// Map is an ordinary map[string]any which implements both the Source
// and Store interfaces.
type Map map[string]any

// Apply implements the Source interface. It recursively walks the underlying
// map to find key value pairs to set on the given store.
func (m Map) Apply(store Store) error {
	return walkMap(m, store, nil)
}

func walkMap(m map[string]any, store Store, chain key.Chain) error {
	for k, v := range m {
		// chain is shared between siblings so each key gets its own copy
		next := append(chain[:len(chain):len(chain)], key.Name(k))

		var err error
		switch x := v.(type) {
		case map[string]any:
			err = walkMap(x, store, next)
		case Map:
			err = walkMap(x, store, next)
		default:
			err = store.Set(next, x)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Set implements the Store interface. Intermediate maps of a key.Chain are
// created as needed.
func (m Map) Set(k key.Keyer, v any) error {
	return set(m, k, v)
}

// UnknownKeyerError occurs when a Store is given a key.Keyer
// it does not know how to set.
type UnknownKeyerError struct {
	Key key.Keyer
}

// Error implements the error interface.
func (e UnknownKeyerError) Error() string {
	return fmt.Sprintf("config source tried setting config value with unknown key.Keyer: %s", e.Key.Key())
}

// EmptyKeyChainError occurs when a value is set with an empty key.Chain.
type EmptyKeyChainError struct {
	Value any
}

// Error implements the error interface.
func (e EmptyKeyChainError) Error() string {
	return fmt.Sprintf("attempted to set value to an empty key chain: %v", e.Value)
}

// UnexpectedKeyValueTypeError represents the situation when
// a user tries setting a key to a different type than it
// had previously been set to.
type UnexpectedKeyValueTypeError struct {
	Key          string
	ExpectedType string
}

// Error implements the error interface.
func (e UnexpectedKeyValueTypeError) Error() string {
	return fmt.Sprintf("expected key value to be a %s: %s", e.ExpectedType, e.Key)
}

func set(m map[string]any, k key.Keyer, v any) error {
	switch x := k.(type) {
	case key.Name:
		m[string(x)] = v
	case key.Chain:
		return setKeyChain(m, x, v)
	default:
		return UnknownKeyerError{Key: k}
	}
	return nil
}

func setKeyChain(m map[string]any, chain key.Chain, v any) error {
	if len(chain) == 0 {
		return EmptyKeyChainError{Value: v}
	}

	root := chain[0]
	if len(chain) == 1 {
		return set(m, root, v)
	}

	old, ok := m[root.Key()]
	if !ok {
		old = make(map[string]any)
		m[root.Key()] = old
	}

	subM, ok := old.(map[string]any)
	if !ok {
		return UnexpectedKeyValueTypeError{
			Key:          root.Key(),
			ExpectedType: "map[string]any",
		}
	}
	return set(subM, chain[1:], v)
}
