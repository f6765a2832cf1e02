package command

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// Type is a parameter's declared wire type. Coercion rules: JSON numbers
// become millisecond durations when the type is duration, ISO-8601 strings
// become instants, strings become uuids; everything else must match the
// declared runtime type.
type Type string

const (
	TypeString   Type = "string"
	TypeInt      Type = "int"
	TypeBool     Type = "bool"
	TypeUUID     Type = "uuid"
	TypeInstant  Type = "instant"
	TypeDuration Type = "duration"
)

// Param declares one handler parameter.
type Param struct {
	Name       string
	Type       Type
	Nullable   bool
	HasDefault bool
	Default    any
}

func required(name string, t Type) Param {
	return Param{Name: name, Type: t}
}

func optional(name string, t Type, def any) Param {
	return Param{Name: name, Type: t, HasDefault: true, Default: def}
}

// nullable parameters accept an explicit null and default to null when
// absent.
func nullable(name string, t Type) Param {
	return Param{Name: name, Type: t, Nullable: true, HasDefault: true, Default: nil}
}

// params concatenates a shared key prefix with extra parameters into a fresh
// slice, so registrations never alias each other's backing arrays.
func params(base []Param, extra ...Param) []Param {
	out := make([]Param, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// coerce converts one raw JSON argument to the parameter's declared type.
func coerce(p Param, raw any) (any, error) {
	if raw == nil {
		if p.Nullable {
			return nil, nil
		}
		return nil, fault.BadRequest("argument %q must not be null", p.Name)
	}
	switch p.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fault.BadRequest("argument %q must be a string", p.Name)
		}
		return s, nil
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fault.BadRequest("argument %q must be a boolean", p.Name)
		}
		return b, nil
	case TypeInt:
		f, ok := raw.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fault.BadRequest("argument %q must be an integer", p.Name)
		}
		return int(f), nil
	case TypeDuration:
		f, ok := raw.(float64)
		if !ok {
			return nil, fault.BadRequest("argument %q must be a number of milliseconds", p.Name)
		}
		return time.Duration(f * float64(time.Millisecond)), nil
	case TypeInstant:
		s, ok := raw.(string)
		if !ok {
			return nil, fault.BadRequest("argument %q must be an ISO-8601 timestamp", p.Name)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fault.BadRequest("argument %q is not a valid timestamp: %v", p.Name, err)
		}
		return t, nil
	case TypeUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, fault.BadRequest("argument %q must be a uuid string", p.Name)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fault.BadRequest("argument %q is not a valid uuid: %v", p.Name, err)
		}
		return id, nil
	default:
		return nil, fault.Internal("parameter %q has unknown declared type %q", p.Name, p.Type)
	}
}

// Args holds coerced arguments keyed by parameter name. The accessors assume
// coercion succeeded; the dispatcher guarantees that before invoking a
// handler.
type Args map[string]any

func (a Args) String(name string) string          { v, _ := a[name].(string); return v }
func (a Args) Bool(name string) bool              { v, _ := a[name].(bool); return v }
func (a Args) Int(name string) int                { v, _ := a[name].(int); return v }
func (a Args) UUID(name string) uuid.UUID         { v, _ := a[name].(uuid.UUID); return v }
func (a Args) Time(name string) time.Time         { v, _ := a[name].(time.Time); return v }
func (a Args) Duration(name string) time.Duration { v, _ := a[name].(time.Duration); return v }

// IsNull reports whether a nullable argument was null (or defaulted to null).
func (a Args) IsNull(name string) bool { return a[name] == nil }
