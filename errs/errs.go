// Package errs defines the error taxonomy shared by the keys, dom, transform
// and xmlenc packages, mirroring the error classes xmlsec reports through
// xmlSecError.
package errs

import "fmt"

// Kind classifies a failure into one of the engine's error categories.
type Kind int

const (
	KindAlloc Kind = iota
	KindXML
	KindInvalidNode
	KindInvalidNodeContent
	KindUnexpectedNode
	KindInvalidType
	KindInvalidURIType
	KindInvalidData
	KindKeyNotFound
	KindCrypto
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindAlloc:
		return "alloc"
	case KindXML:
		return "xml"
	case KindInvalidNode:
		return "invalid-node"
	case KindInvalidNodeContent:
		return "invalid-node-content"
	case KindUnexpectedNode:
		return "unexpected-node"
	case KindInvalidType:
		return "invalid-type"
	case KindInvalidURIType:
		return "invalid-uri-type"
	case KindInvalidData:
		return "invalid-data"
	case KindKeyNotFound:
		return "key-not-found"
	case KindCrypto:
		return "crypto"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every package in this
// module. Component names the subsystem that raised it (e.g. "xmlenc",
// "keys", "transform"), mirroring the errorObject/errorFunction pair that
// xmlSecError attaches to every report.
type Error struct {
	Kind      Kind
	Component string
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(component string, kind Kind, reason string) *Error {
	return &Error{Kind: kind, Component: component, Reason: reason}
}

// Wrap builds an *Error around a lower-level cause.
func Wrap(component string, kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Component: component, Reason: reason, Err: err}
}

// Is reports whether err is an *Error of the given Kind, so callers can
// branch on failure category the way xmlsec callers inspect errorCode.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		break
	}
	return false
}
