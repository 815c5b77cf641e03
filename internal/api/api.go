// Package api is the boundary where calls from sandboxed code, carrying
// dynamically typed arguments, are checked and dispatched onto netapi.
package api

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/eddmann/repyx/internal/apierror"
	"github.com/eddmann/repyx/internal/netapi"
)

type callFunc func(n *netapi.Network, args []any) (any, error)

type signature struct {
	params []string
	fn     callFunc
}

var calls = map[string]signature{
	"listenformessage": {
		params: []string{"localip", "localport"},
		fn: func(n *netapi.Network, args []any) (any, error) {
			const op = "listenformessage"
			ip, err := stringArg(op, "localip", args[0])
			if err != nil {
				return nil, err
			}
			port, err := intArg(op, "localport", args[1])
			if err != nil {
				return nil, err
			}
			return n.ListenForMessage(ip, port)
		},
	},
	"sendmessage": {
		params: []string{"destip", "destport", "message", "localip", "localport"},
		fn: func(n *netapi.Network, args []any) (any, error) {
			const op = "sendmessage"
			destIP, err := stringArg(op, "destip", args[0])
			if err != nil {
				return nil, err
			}
			destPort, err := intArg(op, "destport", args[1])
			if err != nil {
				return nil, err
			}
			message, err := bytesArg(op, "message", args[2])
			if err != nil {
				return nil, err
			}
			localIP, err := stringArg(op, "localip", args[3])
			if err != nil {
				return nil, err
			}
			localPort, err := intArg(op, "localport", args[4])
			if err != nil {
				return nil, err
			}
			return n.SendMessage(destIP, destPort, message, localIP, localPort)
		},
	},
}

// Calls returns the names of the supported calls.
func Calls() []string {
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes the named API call with guest-supplied arguments.
//
// Fewer arguments than the call takes are padded with nil, which is how a
// missing or null argument reaches the API. Extra arguments, nil, and
// values of the wrong type fail with InvalidArgument.
//
// listenformessage returns *netapi.UDPServerSocket and sendmessage returns
// the number of bytes sent.
func Call(n *netapi.Network, name string, args ...any) (any, error) {
	sig, ok := calls[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown call %q (supported: %s)", name, strings.Join(Calls(), ", "))
	}

	if len(args) > len(sig.params) {
		return nil, apierror.New(apierror.KindInvalidArgument, name,
			"takes %d arguments, got %d", len(sig.params), len(args))
	}
	padded := make([]any, len(sig.params))
	copy(padded, args)

	return sig.fn(n, padded)
}

func stringArg(op, param string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", typeError(op, param, "string", v)
	}
	return s, nil
}

func intArg(op, param string, v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case int:
		return x, nil
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint:
		if uint64(x) > math.MaxInt32 {
			return math.MaxInt32, nil
		}
		n = int64(x)
	case uint64:
		if x > math.MaxInt32 {
			return math.MaxInt32, nil
		}
		n = int64(x)
	default:
		return 0, typeError(op, param, "integer", v)
	}
	// Values beyond int32 are out of every valid range; clamp so they
	// still fail range checks on 32-bit platforms.
	if n > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	if n < math.MinInt32 {
		return math.MinInt32, nil
	}
	return int(n), nil
}

func bytesArg(op, param string, v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	default:
		return nil, typeError(op, param, "string", v)
	}
}

func typeError(op, param, want string, got any) error {
	if got == nil {
		return apierror.New(apierror.KindInvalidArgument, op, "%s must be a %s, got null", param, want)
	}
	return apierror.New(apierror.KindInvalidArgument, op, "%s must be a %s, got %T", param, want, got)
}
