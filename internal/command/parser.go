package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/wvaviator/mycokv/internal/mkverrors"
	"github.com/wvaviator/mycokv/internal/value"
)

// Parse tokenizes one line of text on ASCII whitespace and translates it
// into an Operation. The command verb is case-sensitive uppercase.
func Parse(line string) (Operation, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Operation{}, mkverrors.NoCommand()
	}

	verb, args := fields[0], fields[1:]

	switch verb {
	case "GET":
		key, err := requireKey(args)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: Get, Key: key}, nil

	case "PUT":
		if len(args) == 0 {
			return Operation{}, mkverrors.NoKey()
		}
		key := args[0]
		if len(args) < 2 {
			return Operation{}, mkverrors.NoValue()
		}
		text := strings.Join(args[1:], " ")
		v, err := value.Parse(text)
		if err != nil {
			return Operation{}, mkverrors.BadValue(text)
		}
		return Operation{Kind: Put, Key: key, Value: v}, nil

	case "DELETE":
		key, err := requireKey(args)
		if err != nil {
			return Operation{}, err
		}
		return Operation{Kind: Delete, Key: key}, nil

	case "PURGE":
		return Operation{Kind: Purge}, nil

	case "EXPIREAT":
		key, rest, err := requireKeyAnd(args)
		if err != nil {
			return Operation{}, err
		}
		ts, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Operation{}, mkverrors.BadValue(rest)
		}
		return Operation{Kind: ExpireAt, Key: key, Timestamp: ts}, nil

	case "EXPIRE":
		key, rest, err := requireKeyAnd(args)
		if err != nil {
			return Operation{}, err
		}
		durMs, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Operation{}, mkverrors.BadValue(rest)
		}
		nowMs := time.Now().UnixMilli()
		return Operation{Kind: ExpireAt, Key: key, Timestamp: nowMs + durMs}, nil

	case "TIME":
		return Operation{Kind: Time}, nil

	case "STATS":
		return Operation{Kind: Stats}, nil

	case "CALC":
		if len(args) == 0 {
			return Operation{}, mkverrors.NoKey()
		}
		key := args[0]
		if len(args) < 2 {
			return Operation{}, mkverrors.NoValue()
		}
		expr := strings.Join(args[1:], " ")
		// A double-quoted expression is unwrapped, so `CALC k "self*2"` and
		// `CALC k self*2` evaluate the same expression.
		if len(expr) >= 2 && strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`) {
			expr = expr[1 : len(expr)-1]
		}
		return Operation{Kind: Calc, Key: key, Expression: expr}, nil

	default:
		return Operation{}, mkverrors.Unknown(verb)
	}
}

func requireKey(args []string) (string, error) {
	if len(args) == 0 {
		return "", mkverrors.NoKey()
	}
	return args[0], nil
}

func requireKeyAnd(args []string) (key, rest string, err error) {
	if len(args) == 0 {
		return "", "", mkverrors.NoKey()
	}
	if len(args) < 2 {
		return "", "", mkverrors.NoValue()
	}
	return args[0], args[1], nil
}
