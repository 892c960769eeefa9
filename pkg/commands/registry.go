package commands

import "strings"

type Registry struct {
	defs   []Definition
	byKind map[Kind]int
}

func NewRegistry(defs []Definition) *Registry {
	r := &Registry{defs: defs, byKind: make(map[Kind]int, len(defs))}
	for i, d := range defs {
		r.byKind[d.Kind] = i
	}
	return r
}

// Lookup maps a parsed command kind to its definition.
func (r *Registry) Lookup(kind Kind) (Definition, bool) {
	i, ok := r.byKind[kind]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Names returns "/name" for each definition in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, "/"+d.Name)
	}
	return out
}

// Menu renders one bullet per command, with its example on the next line.
func (r *Registry) Menu() string {
	var sb strings.Builder
	for i, d := range r.defs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("  • ")
		sb.WriteString(d.Usage)
		if d.Example != "" {
			sb.WriteString("\n    Esempio: ")
			sb.WriteString(d.Example)
		}
	}
	return sb.String()
}
