package gen

import (
	"strings"
)

// Role identifies what a generated function does with a shape. The memo
// key is (shape identity, role); the same shape reached through many
// member paths resolves to one function per role.
type Role int

const (
	RoleSerialize Role = iota
	RoleParse
	RolePayload
	RoleOperation
	RoleOutput
	RoleError
	RoleDocument
	RoleEvent
	RoleSerde
	RoleBinding
)

func (r Role) String() string {
	switch r {
	case RoleSerialize:
		return "serialize"
	case RoleParse:
		return "parse"
	case RolePayload:
		return "payload"
	case RoleOperation:
		return "operation"
	case RoleOutput:
		return "output"
	case RoleError:
		return "error"
	case RoleDocument:
		return "document"
	case RoleEvent:
		return "event"
	case RoleSerde:
		return "serde"
	case RoleBinding:
		return "binding"
	}
	return "unknown"
}

// FuncKey is the memoization key for generated functions.
type FuncKey struct {
	ShapeID string
	Role    Role
}

var goReservedWords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// FunctionName derives the identifier for a generated function. Injective
// per (shape identity, role): the namespace, name, and member path all
// survive into the identifier ('#' and '$' map to distinct separators),
// and it is stable for the life of a generation session. Member-derived
// keys ("Container$member") yield member-scoped names so two members of
// different containers targeting the same primitive stay distinct.
func FunctionName(shapeID string, role Role) string {
	var b strings.Builder
	b.WriteString(role.String())
	cap := true
	for _, r := range shapeID {
		switch r {
		case '.', '-':
			cap = true
		case '#':
			b.WriteString("0")
			cap = true
		case '$':
			b.WriteString("1")
			cap = true
		default:
			if cap {
				b.WriteString(strings.ToUpper(string(r)))
				cap = false
			} else {
				b.WriteRune(r)
			}
		}
	}
	name := b.String()
	if goReservedWords[name] {
		name = name + "_"
	}
	return name
}
