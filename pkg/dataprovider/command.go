package dataprovider

import (
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/VatsalSy/SqlProvider/internal/errors"
)

// Named holds parameters bound to :name placeholders.
type Named map[string]any

// Command is SQL text plus its parameters, either positional or named.
type Command struct {
	SQL   string
	Args  []any
	Named Named
}

// NewCommand creates a command. A single Named argument binds by name;
// anything else binds positionally.
func NewCommand(sql string, args ...any) *Command {
	if len(args) == 1 {
		if named, ok := args[0].(Named); ok {
			return NewNamedCommand(sql, named)
		}
	}
	return &Command{SQL: sql, Args: args}
}

// NewNamedCommand creates a command with named parameters.
func NewNamedCommand(sql string, params Named) *Command {
	return &Command{SQL: sql, Named: params}
}

// bind resolves the command into driver SQL and positional arguments.
func (c *Command) bind(bindType int) (string, []any, error) {
	if c.Named == nil {
		args := make([]any, len(c.Args))
		copy(args, c.Args)
		return c.SQL, args, nil
	}

	query, args, err := sqlx.Named(c.SQL, map[string]interface{}(c.Named))
	if err != nil {
		return "", nil, errors.New(errors.ErrorTypeFormatting, "bind", "failed to bind named parameters", err)
	}
	return sqlx.Rebind(bindType, query), args, nil
}

// NormalizeValue maps legacy sentinel values to nil: the minimum of a
// signed integer type, zero of an unsigned integer type and the most
// negative finite float. Every other value is returned unchanged.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		if t == math.MinInt {
			return nil
		}
	case int8:
		if t == math.MinInt8 {
			return nil
		}
	case int16:
		if t == math.MinInt16 {
			return nil
		}
	case int32:
		if t == math.MinInt32 {
			return nil
		}
	case int64:
		if t == math.MinInt64 {
			return nil
		}
	case uint:
		if t == 0 {
			return nil
		}
	case uint8:
		if t == 0 {
			return nil
		}
	case uint16:
		if t == 0 {
			return nil
		}
	case uint32:
		if t == 0 {
			return nil
		}
	case uint64:
		if t == 0 {
			return nil
		}
	case float32:
		if t == -math.MaxFloat32 {
			return nil
		}
	case float64:
		if t == -math.MaxFloat64 {
			return nil
		}
	}
	return v
}
