// Package failure defines the error taxonomy shared by the posn packages.
//
// Every error that leaves a persistence or key-management operation carries
// one of four kinds. Callers classify with errors.Is:
//
//	if errors.Is(err, failure.ErrParse) {
//	    // the file on disk is damaged; nothing was loaded
//	}
//
// The underlying cause stays reachable through the same chain, so
// errors.Is(err, fs.ErrPermission) keeps working on an ErrIO failure.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrCrypto indicates the random source or a cipher was unavailable or
	// rejected its input.
	ErrCrypto = errors.New("crypto failure")

	// ErrParse indicates malformed input or a missing required field during
	// deserialization. No partial result accompanies it.
	ErrParse = errors.New("parse failure")

	// ErrSerialization indicates a value could not be converted to its
	// encoded form.
	ErrSerialization = errors.New("serialization failure")

	// ErrIO indicates a file read or write error.
	ErrIO = errors.New("io failure")
)

// Error is a classified failure. Kind is one of the package sentinels,
// Op names the operation that failed and Err is the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func wrap(kind error, op string, err error) error {
	var existing *Error
	if errors.As(err, &existing) && existing.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Crypto classifies err as ErrCrypto.
func Crypto(op string, err error) error { return wrap(ErrCrypto, op, err) }

// Parse classifies err as ErrParse.
func Parse(op string, err error) error { return wrap(ErrParse, op, err) }

// Serialization classifies err as ErrSerialization.
func Serialization(op string, err error) error { return wrap(ErrSerialization, op, err) }

// IO classifies err as ErrIO.
func IO(op string, err error) error { return wrap(ErrIO, op, err) }

// KindOf returns the kind sentinel carried by err, or nil when err was not
// classified by this package.
func KindOf(err error) error {
	for _, kind := range []error{ErrCrypto, ErrParse, ErrSerialization, ErrIO} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
