package value

import (
	"fmt"
	"math"
	"reflect"
)

// ConversionError reports a failed host↔Value conversion, mirroring the
// teacher's ConversionError (internal/interp/runtime/errors.go) in shape:
// it names the offending type on both sides and the reason.
type ConversionError struct {
	From   string
	To     string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Reason)
}

func newConversionError(from, to, reason string) error {
	return &ConversionError{From: from, To: to, Reason: reason}
}

// FromHost maps an arbitrary host Go value into the universal Value per the
// rules of spec.md §4.1: booleans, integers (erroring on signed-64 overflow
// for unsigned sources), floats, byte slices, slices/arrays (recursive),
// structs (field-by-field, unknown fields omitted, nested errors
// propagate), pointers/optionals (Nil or recurse), and enums represented as
// Go string-based named types (String of the variant name).
func FromHost(v any) (Value, error) {
	if v == nil {
		return Nil{}, nil
	}
	return fromHostReflect(reflect.ValueOf(v))
}

func fromHostReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return Nil{}, nil
	case reflect.Bool:
		return Boolean(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, newConversionError(rv.Type().String(), "integer", "overflows signed 64-bit integer")
		}
		return Integer(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		if rv.Type().Name() != "string" {
			// Named string type: treated as an enum variant name.
			return NewString(rv.String()), nil
		}
		return NewString(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return &String{Bytes: append([]byte(nil), rv.Bytes()...)}, nil
		}
		return fromHostSequence(rv)
	case reflect.Array:
		return fromHostSequence(rv)
	case reflect.Map:
		return fromHostMap(rv)
	case reflect.Struct:
		return fromHostStruct(rv)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Nil{}, nil
		}
		return fromHostReflect(rv.Elem())
	default:
		return nil, newConversionError(rv.Type().String(), "value", "unsupported host kind "+rv.Kind().String())
	}
}

func fromHostSequence(rv reflect.Value) (Value, error) {
	n := rv.Len()
	elems := make([]Value, n)
	for i := 0; i < n; i++ {
		ev, err := fromHostReflect(rv.Index(i))
		if err != nil {
			return nil, err
		}
		elems[i] = ev
	}
	return &Array{Elements: elems}, nil
}

func fromHostMap(rv reflect.Value) (Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, newConversionError(rv.Type().String(), "object", "map keys must be strings")
	}
	obj := NewObject()
	iter := rv.MapRange()
	for iter.Next() {
		fv, err := fromHostReflect(iter.Value())
		if err != nil {
			return nil, err
		}
		obj.Set(iter.Key().String(), fv)
	}
	return obj, nil
}

func fromHostStruct(rv reflect.Value) (Value, error) {
	obj := NewObject()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get("lua")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		fv, err := fromHostReflect(rv.Field(i))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		obj.Set(name, fv)
	}
	return obj, nil
}

// ToHost converts a Value back into a host Go value of type T, applying the
// lenient numeric promotion and boolean-to-integer rules of spec.md §4.1:
// Integer→Float is allowed, Number→Integer truncates with a range check,
// and Boolean→Integer maps true=1/false=0. Structs and slices still require
// structurally-matching input.
func ToHost[T any](v Value) (T, error) {
	var zero T
	rv, err := toHostReflect(v, reflect.TypeOf(zero))
	if err != nil {
		return zero, err
	}
	if !rv.IsValid() {
		return zero, nil
	}
	return rv.Interface().(T), nil
}

func toHostReflect(v Value, target reflect.Type) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, fmt.Errorf("ToHost: target type must not be nil")
	}
	if IsNil(v) {
		return reflect.Zero(target), nil
	}
	switch target.Kind() {
	case reflect.Bool:
		switch t := v.(type) {
		case Boolean:
			return reflect.ValueOf(bool(t)), nil
		default:
			return reflect.Value{}, newConversionError(kindName(v), "bool", "expected boolean")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(target).Elem()
		rv.SetInt(i)
		return rv, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		i, err := toInt64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if i < 0 {
			return reflect.Value{}, newConversionError(kindName(v), target.String(), "negative value cannot convert to unsigned")
		}
		rv := reflect.New(target).Elem()
		rv.SetUint(uint64(i))
		return rv, nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(target).Elem()
		rv.SetFloat(f)
		return rv, nil
	case reflect.String:
		s, ok := v.(*String)
		if !ok {
			return reflect.Value{}, newConversionError(kindName(v), "string", "expected string")
		}
		return reflect.ValueOf(string(s.Bytes)).Convert(target), nil
	case reflect.Slice:
		if target.Elem().Kind() == reflect.Uint8 {
			s, ok := v.(*String)
			if !ok {
				return reflect.Value{}, newConversionError(kindName(v), "[]byte", "expected string")
			}
			b := append([]byte(nil), s.Bytes...)
			return reflect.ValueOf(b), nil
		}
		arr, ok := v.(*Array)
		if !ok {
			return reflect.Value{}, newConversionError(kindName(v), target.String(), "expected array")
		}
		out := reflect.MakeSlice(target, len(arr.Elements), len(arr.Elements))
		for i, e := range arr.Elements {
			ev, err := toHostReflect(e, target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case reflect.Map:
		obj, ok := v.(*Object)
		if !ok {
			return reflect.Value{}, newConversionError(kindName(v), target.String(), "expected object")
		}
		out := reflect.MakeMapWithSize(target, obj.Len())
		for _, k := range obj.Keys() {
			fv, _ := obj.Get(k)
			ev, err := toHostReflect(fv, target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(target.Key()), ev)
		}
		return out, nil
	case reflect.Struct:
		obj, ok := v.(*Object)
		if !ok {
			return reflect.Value{}, newConversionError(kindName(v), target.String(), "expected object")
		}
		out := reflect.New(target).Elem()
		for i := 0; i < target.NumField(); i++ {
			field := target.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Tag.Get("lua")
			if name == "-" {
				continue
			}
			if name == "" {
				name = field.Name
			}
			fv, ok := obj.Get(name)
			if !ok {
				return reflect.Value{}, newConversionError(kindName(v), target.String(), "missing field "+name)
			}
			ev, err := toHostReflect(fv, field.Type)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %s: %w", field.Name, err)
			}
			out.Field(i).Set(ev)
		}
		return out, nil
	case reflect.Ptr:
		ev, err := toHostReflect(v, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(ev)
		return ptr, nil
	case reflect.Interface:
		return reflect.ValueOf(ToAny(v)), nil
	default:
		return reflect.Value{}, newConversionError(kindName(v), target.String(), "unsupported target kind "+target.Kind().String())
	}
}

func toInt64(v Value) (int64, error) {
	switch t := v.(type) {
	case Integer:
		return int64(t), nil
	case Number:
		f := float64(t)
		if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
			return 0, newConversionError("number", "integer", "value out of range or not integral")
		}
		return int64(f), nil
	case Boolean:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, newConversionError(kindName(v), "integer", "expected integer, number, or boolean")
	}
}

func toFloat64(v Value) (float64, error) {
	switch t := v.(type) {
	case Number:
		return float64(t), nil
	case Integer:
		return float64(t), nil
	case Boolean:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, newConversionError(kindName(v), "number", "expected number, integer, or boolean")
	}
}

// ToAny converts v into the most natural untyped Go representation, used for
// reflect.Interface targets and by the stack converter's debug paths.
func ToAny(v Value) any {
	switch t := v.(type) {
	case nil, Nil:
		return nil
	case Boolean:
		return bool(t)
	case Integer:
		return int64(t)
	case Number:
		return float64(t)
	case *String:
		return string(t.Bytes)
	case *Array:
		out := make([]any, len(t.Elements))
		for i, e := range t.Elements {
			out[i] = ToAny(e)
		}
		return out
	case *Object:
		out := make(map[string]any, t.Len())
		for _, k := range t.Keys() {
			fv, _ := t.Get(k)
			out[k] = ToAny(fv)
		}
		return out
	case *Function:
		return t
	case *Userdata:
		return t
	default:
		return nil
	}
}

func kindName(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
