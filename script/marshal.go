package script

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/lixenwraith/ember/core"
	"github.com/lixenwraith/ember/registry"
)

// marshalComponent deep-copies a component value into a guest table
// keyed by the registered field names. The guest never sees a pointer
// into World storage.
func marshalComponent(L *lua.LState, entry *registry.Entry, v any) (*lua.LTable, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Type() != entry.Type {
		return nil, &core.InvalidInputError{Details: fmt.Sprintf("value is %T, component is %s", v, entry.Name)}
	}
	tbl := L.NewTable()
	for _, f := range entry.Fields {
		lv, err := goToLua(L, rv.Field(f.Index))
		if err != nil {
			return nil, err
		}
		tbl.RawSetString(f.Name, lv)
	}
	return tbl, nil
}

// unmarshalComponent builds a fresh component value from a guest table.
// Keys with no registered field are rejected, not dropped.
func unmarshalComponent(entry *registry.Entry, tbl *lua.LTable) (any, error) {
	out := reflect.New(entry.Type).Elem()

	byName := make(map[string]registry.Field, len(entry.Fields))
	for _, f := range entry.Fields {
		byName[f.Name] = f
	}

	var convErr error
	tbl.ForEach(func(k, v lua.LValue) {
		if convErr != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			convErr = &core.InvalidInputError{Details: fmt.Sprintf("component %s: non-string field key %v", entry.Name, k)}
			return
		}
		f, ok := byName[string(key)]
		if !ok {
			convErr = &core.InvalidInputError{Details: fmt.Sprintf("component %s has no field %q", entry.Name, string(key))}
			return
		}
		if err := luaToGo(v, out.Field(f.Index)); err != nil {
			convErr = &core.InvalidInputError{Details: fmt.Sprintf("component %s field %q: %v", entry.Name, string(key), err)}
		}
	})
	if convErr != nil {
		return nil, convErr
	}
	return out.Interface(), nil
}

// goToLua converts one field value to its guest representation.
// Nested structs and arrays become tables; nested struct fields use
// lowerCamel names like registered top-level fields do.
func goToLua(L *lua.LState, rv reflect.Value) (lua.LValue, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return lua.LBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float()), nil
	case reflect.String:
		return lua.LString(rv.String()), nil
	case reflect.Struct:
		tbl := L.NewTable()
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			lv, err := goToLua(L, rv.Field(i))
			if err != nil {
				return lua.LNil, err
			}
			tbl.RawSetString(registry.GuestFieldName(t.Field(i).Name), lv)
		}
		return tbl, nil
	case reflect.Array, reflect.Slice:
		tbl := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			lv, err := goToLua(L, rv.Index(i))
			if err != nil {
				return lua.LNil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
		return tbl, nil
	default:
		return lua.LNil, fmt.Errorf("unsupported field kind %s", rv.Kind())
	}
}

// luaToGo assigns a guest value into a settable reflect target.
func luaToGo(v lua.LValue, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		b, ok := v.(lua.LBool)
		if !ok {
			return fmt.Errorf("expected boolean, got %s", v.Type())
		}
		rv.SetBool(bool(b))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := v.(lua.LNumber)
		if !ok {
			return fmt.Errorf("expected number, got %s", v.Type())
		}
		rv.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := v.(lua.LNumber)
		if !ok {
			return fmt.Errorf("expected number, got %s", v.Type())
		}
		if n < 0 {
			return fmt.Errorf("negative value for unsigned field")
		}
		rv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, ok := v.(lua.LNumber)
		if !ok {
			return fmt.Errorf("expected number, got %s", v.Type())
		}
		rv.SetFloat(float64(n))
	case reflect.String:
		s, ok := v.(lua.LString)
		if !ok {
			return fmt.Errorf("expected string, got %s", v.Type())
		}
		if err := validateString(string(s)); err != nil {
			return err
		}
		rv.SetString(string(s))
	case reflect.Struct:
		tbl, ok := v.(*lua.LTable)
		if !ok {
			return fmt.Errorf("expected table, got %s", v.Type())
		}
		t := rv.Type()
		fields := make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				fields[registry.GuestFieldName(t.Field(i).Name)] = i
			}
		}
		var err error
		tbl.ForEach(func(k, fv lua.LValue) {
			if err != nil {
				return
			}
			key, ok := k.(lua.LString)
			if !ok {
				err = fmt.Errorf("non-string key %v", k)
				return
			}
			idx, ok := fields[string(key)]
			if !ok {
				err = fmt.Errorf("unknown field %q", string(key))
				return
			}
			err = luaToGo(fv, rv.Field(idx))
		})
		return err
	case reflect.Array:
		tbl, ok := v.(*lua.LTable)
		if !ok {
			return fmt.Errorf("expected table, got %s", v.Type())
		}
		for i := 0; i < rv.Len(); i++ {
			if ev := tbl.RawGetInt(i + 1); ev != lua.LNil {
				if err := luaToGo(ev, rv.Index(i)); err != nil {
					return err
				}
			}
		}
	default:
		return fmt.Errorf("unsupported field kind %s", rv.Kind())
	}
	return nil
}

// luaToAny converts an arbitrary guest value into plain Go data for
// event payloads. Tables become map[string]any or []any.
func luaToAny(v lua.LValue) any {
	switch tv := v.(type) {
	case lua.LBool:
		return bool(tv)
	case lua.LNumber:
		return float64(tv)
	case lua.LString:
		return string(tv)
	case *lua.LTable:
		length := tv.Len()
		if length > 0 {
			arr := make([]any, 0, length)
			for i := 1; i <= length; i++ {
				arr = append(arr, luaToAny(tv.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		tv.ForEach(func(k, val lua.LValue) {
			m[k.String()] = luaToAny(val)
		})
		return m
	default:
		return nil
	}
}

// anyToLua converts plain Go event payload data into a guest value.
func anyToLua(L *lua.LState, v any) lua.LValue {
	switch tv := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(tv)
	case int:
		return lua.LNumber(tv)
	case int64:
		return lua.LNumber(tv)
	case float64:
		return lua.LNumber(tv)
	case string:
		return lua.LString(tv)
	case []any:
		tbl := L.NewTable()
		for i, e := range tv {
			tbl.RawSetInt(i+1, anyToLua(L, e))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, e := range tv {
			tbl.RawSetString(k, anyToLua(L, e))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", tv))
	}
}
