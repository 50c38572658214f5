package duckdb

import "strings"

// memberType is one named child of a STRUCT or UNION type name.
type memberType struct {
	name     string
	typeName string
}

// elementType returns the child type of a LIST (INNER[]) or ARRAY (INNER[N])
// type name, or "" when typeName is neither.
func elementType(typeName string) string {
	typeName = strings.TrimSpace(typeName)
	if !strings.HasSuffix(typeName, "]") {
		return ""
	}
	open := strings.LastIndex(typeName, "[")
	if open <= 0 {
		return ""
	}
	return strings.TrimSpace(typeName[:open])
}

// structMembers parses STRUCT("a" INTEGER, "b" DATE[]) into its members in
// declaration order. It also accepts the UNION(...) form.
func structMembers(typeName string) ([]memberType, bool) {
	inner, ok := unwrapType(typeName, "STRUCT")
	if !ok {
		inner, ok = unwrapType(typeName, "UNION")
	}
	if !ok {
		return nil, false
	}
	var members []memberType
	for _, part := range splitTopLevel(inner) {
		name, rest, ok := memberName(part)
		if !ok {
			return nil, false
		}
		members = append(members, memberType{name: name, typeName: strings.TrimSpace(rest)})
	}
	return members, true
}

// mapTypes parses MAP(K, V).
func mapTypes(typeName string) (keyType, valueType string, ok bool) {
	inner, ok := unwrapType(typeName, "MAP")
	if !ok {
		return "", "", false
	}
	parts := splitTopLevel(inner)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func unwrapType(typeName, prefix string) (string, bool) {
	typeName = strings.TrimSpace(typeName)
	if len(typeName) < len(prefix)+2 || !strings.EqualFold(typeName[:len(prefix)], prefix) {
		return "", false
	}
	rest := strings.TrimSpace(typeName[len(prefix):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}

// splitTopLevel splits on commas outside parentheses, brackets and quoted
// field names.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start, quoted := 0, 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" || len(parts) > 0 {
		parts = append(parts, last)
	}
	return parts
}

// memberName reads a leading field name, either bare or double quoted with
// "" as the escaped quote, and returns the remaining type text.
func memberName(part string) (name, rest string, ok bool) {
	part = strings.TrimSpace(part)
	if part == "" {
		return "", "", false
	}
	if part[0] != '"' {
		cut := strings.IndexByte(part, ' ')
		if cut < 0 {
			return "", "", false
		}
		return part[:cut], part[cut+1:], true
	}
	var b strings.Builder
	for i := 1; i < len(part); i++ {
		if part[i] != '"' {
			b.WriteByte(part[i])
			continue
		}
		if i+1 < len(part) && part[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), part[i+1:], true
	}
	return "", "", false
}
