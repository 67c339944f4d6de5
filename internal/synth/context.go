package synth

import (
	"fmt"
	"strings"

	"sqlregress/internal/domain"
)

// renderContext groups the resolved definitions by inferred role and renders
// them into the structured context block presented to the oracle. The
// grouping lets the model tell safe insert targets from validation targets.
func renderContext(procedureName, procedureSchema, procedureDDL string, objects []domain.ResolvedObject) string {
	var source, target, master, other []string

	for _, obj := range objects {
		entry := fmt.Sprintf("%s:\n```sql\n%s\n```\n", obj.Name, obj.Definition)

		switch {
		case obj.Kind == domain.KindTable && obj.Role == domain.RoleSource:
			source = append(source, entry)
		case obj.Kind == domain.KindTable && obj.Role == domain.RoleTarget:
			target = append(target, entry)
		case obj.Kind == domain.KindTable && obj.Role == domain.RoleMaster:
			master = append(master, entry)
		default:
			other = append(other, fmt.Sprintf("-- %s\n%s", obj.Kind, entry))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Procedure DDL (%s.%s):\n```sql\n%s\n```\n\n", procedureSchema, procedureName, procedureDDL)

	if len(objects) == 0 {
		b.WriteString("No related object DDLs were found.\n")
		return b.String()
	}

	b.WriteString("Related object DDLs by role/type:\n\n")
	writeGroup(&b, "Source Tables", source)
	writeGroup(&b, "Target Tables", target)
	writeGroup(&b, "Master Tables", master)
	writeGroup(&b, "Other Objects (Views/Procedures/Misc Tables)", other)
	return b.String()
}

func writeGroup(b *strings.Builder, heading string, entries []string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s:**\n%s\n", heading, strings.Join(entries, "\n"))
}
