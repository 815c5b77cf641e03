// Package apierror defines the closed set of error kinds raised by the
// sandboxed network API.
package apierror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an API error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindAlreadyBound
	KindAddressBinding
	KindResourceForbidden
	KindResourceExhausted
	KindSocketWouldBlock
	KindSocketClosed
)

var kindNames = map[Kind]string{
	KindUnknown:           "UnknownError",
	KindInvalidArgument:   "InvalidArgumentError",
	KindAlreadyBound:      "AlreadyBoundError",
	KindAddressBinding:    "AddressBindingError",
	KindResourceForbidden: "ResourceForbiddenError",
	KindResourceExhausted: "ResourceExhaustedError",
	KindSocketWouldBlock:  "SocketWouldBlockError",
	KindSocketClosed:      "SocketClosedLocal",
}

// aliases maps the repy exception names onto kinds.
var aliases = map[string]Kind{
	"repyargumenterror":      KindInvalidArgument,
	"alreadylisteningerror":  KindAlreadyBound,
	"socketclosedlocalerror": KindSocketClosed,
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText lets kinds appear by name in reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind resolves a canonical kind name or a repy alias. Names are
// matched case-insensitively. The empty string, "none" and "success"
// return expectErr=false, meaning the call is expected to succeed.
func ParseKind(name string) (kind Kind, expectErr bool, err error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || key == "none" || key == "success" {
		return KindUnknown, false, nil
	}
	for k, n := range kindNames {
		if k != KindUnknown && strings.ToLower(n) == key {
			return k, true, nil
		}
	}
	if k, ok := aliases[key]; ok {
		return k, true, nil
	}
	return KindUnknown, false, fmt.Errorf("unknown error kind %q", name)
}

// Error is an error raised by the network API.
type Error struct {
	Kind Kind
	Op   string // API call that failed, e.g. "listenformessage"
	Msg  string
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrAlreadyBound      = &Error{Kind: KindAlreadyBound}
	ErrAddressBinding    = &Error{Kind: KindAddressBinding}
	ErrResourceForbidden = &Error{Kind: KindResourceForbidden}
	ErrResourceExhausted = &Error{Kind: KindResourceExhausted}
	ErrSocketWouldBlock  = &Error{Kind: KindSocketWouldBlock}
	ErrSocketClosed      = &Error{Kind: KindSocketClosed}
)

// New returns an Error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind carrying cause.
func Wrap(kind Kind, op string, cause error, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
