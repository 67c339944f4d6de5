package domain

import "strings"

// ObjectKind classifies a referenced warehouse object.
type ObjectKind string

const (
	KindTable     ObjectKind = "TABLE"
	KindView      ObjectKind = "VIEW"
	KindProcedure ObjectKind = "PROCEDURE"
)

// TableRole is the inferred role of a referenced table in the data flow of
// the object under test. Only meaningful for tables; views and procedures
// always carry RoleNone.
type TableRole string

const (
	RoleSource TableRole = "source"
	RoleTarget TableRole = "target"
	RoleMaster TableRole = "master"
	RoleNone   TableRole = "n/a"
)

// ParseTableRole normalizes an oracle-supplied role string.
func ParseTableRole(s string) TableRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source":
		return RoleSource
	case "target":
		return RoleTarget
	case "master":
		return RoleMaster
	default:
		return RoleNone
	}
}

// Stream and temp-table naming-convention prefixes. Objects whose local name
// carries one of these are change-data-capture artifacts, never true tables,
// and must be excluded from resolution.
const (
	streamPrefix = "str_"
	tempPrefix   = "tmp_"
)

// IsStreamOrTempName reports whether the local segment of a fully qualified
// name marks a stream or temporary artifact.
func IsStreamOrTempName(qualifiedName string) bool {
	parts := strings.Split(qualifiedName, ".")
	local := strings.ToLower(parts[len(parts)-1])
	return strings.HasPrefix(local, streamPrefix) || strings.HasPrefix(local, tempPrefix)
}

// SplitQualifiedName splits a qualified object name into its schema and local
// name, using the last two segments. Returns ok=false when the name has no
// schema qualifier.
func SplitQualifiedName(qualifiedName string) (schema, name string, ok bool) {
	parts := strings.Split(qualifiedName, ".")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}

// ResolvedObject is one object referenced by the object under test, together
// with its fetched definition.
type ResolvedObject struct {
	Name       string     // fully qualified name
	Kind       ObjectKind // table, view, or procedure
	Role       TableRole  // RoleNone for views and procedures
	Definition string     // DDL text
}
