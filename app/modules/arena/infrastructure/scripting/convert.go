package arenascript

import (
	"fmt"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Shopify/go-lua"
)

// push converts a Go value into a Lua value on top of the stack. Characters
// become tables with id, name, npc, clans and able fields.
func push(l *lua.State, v any) error {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case int:
		l.PushInteger(x)
	case int64:
		l.PushNumber(float64(x))
	case float64:
		l.PushNumber(x)
	case string:
		l.PushString(x)
	case []int:
		l.CreateTable(len(x), 0)
		for i, n := range x {
			l.PushInteger(n)
			l.RawSetInt(-2, i+1)
		}
	case []float64:
		l.CreateTable(len(x), 0)
		for i, n := range x {
			l.PushNumber(n)
			l.RawSetInt(-2, i+1)
		}
	case arenadomain.Character:
		l.CreateTable(0, 5)
		l.PushNumber(float64(x.ID()))
		l.SetField(-2, "id")
		l.PushString(x.Name())
		l.SetField(-2, "name")
		l.PushBoolean(x.IsNPC())
		l.SetField(-2, "npc")
		l.PushBoolean(x.IsAbleBodied())
		l.SetField(-2, "able")
		clans := x.Clans()
		l.CreateTable(len(clans), 0)
		for i, c := range clans {
			l.PushNumber(float64(c))
			l.RawSetInt(-2, i+1)
		}
		l.SetField(-2, "clans")
	default:
		return fmt.Errorf("unsupported argument type %T", v)
	}
	return nil
}

// pull converts the value at index into Go. Tables must be arrays of numbers
// and come back as []any of float64.
func pull(l *lua.State, index int) (any, error) {
	switch l.TypeOf(index) {
	case lua.TypeNil, lua.TypeNone:
		return nil, nil
	case lua.TypeBoolean:
		return l.ToBoolean(index), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return n, nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s, nil
	case lua.TypeTable:
		n := l.RawLength(index)
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			l.RawGetInt(index, i)
			v, ok := l.ToNumber(-1)
			isNum := l.IsNumber(-1)
			l.Pop(1)
			if !isNum || !ok {
				return nil, fmt.Errorf("result table element %d is not a number", i)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported result type %s", lua.TypeNameOf(l, index))
}
