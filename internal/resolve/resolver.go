// Package resolve discovers the objects referenced by a stored procedure and
// fetches their definitions.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sqlregress/internal/domain"
)

// Resolver enumerates every table, view, and procedure a definition touches,
// infers table roles, and fetches the referenced definitions.
type Resolver struct {
	oracle domain.Oracle
	defs   domain.DefinitionStore
	logger *slog.Logger
}

// New creates a Resolver.
func New(oracle domain.Oracle, defs domain.DefinitionStore, logger *slog.Logger) *Resolver {
	return &Resolver{oracle: oracle, defs: defs, logger: logger.With("component", "resolver")}
}

// Resolve submits the definition text to the oracle and parses its line-based
// response defensively. Malformed lines are logged and skipped, never fatal.
// An oracle failure aborts resolution but returns whatever was resolved so
// far plus a diagnostic; it never raises past this stage.
func (r *Resolver) Resolve(ctx context.Context, definition string) ([]domain.ResolvedObject, []string) {
	var diags []string

	response, err := r.oracle.Generate(ctx, extractionPrompt(definition))
	if err != nil {
		r.logger.Error("object extraction failed", "error", err)
		diags = append(diags, fmt.Sprintf("object extraction failed: %v", err))
		return nil, diags
	}

	var objects []domain.ResolvedObject
	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		obj, diag, ok := r.resolveLine(ctx, line)
		if diag != "" {
			diags = append(diags, diag)
		}
		if ok {
			objects = append(objects, obj)
		}
	}

	return objects, diags
}

// resolveLine parses one <kind>:<name>:<role> entry and fetches its
// definition. The returned diagnostic is non-empty when the entry was
// dropped or adjusted.
func (r *Resolver) resolveLine(ctx context.Context, line string) (domain.ResolvedObject, string, bool) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) != 3 {
		r.logger.Warn("skipping malformed line", "line", line)
		return domain.ResolvedObject{}, fmt.Sprintf("skipping malformed line (expected kind:name:role): %s", line), false
	}

	kind := domain.ObjectKind(strings.ToUpper(strings.TrimSpace(parts[0])))
	name := strings.TrimSpace(parts[1])
	role := domain.ParseTableRole(parts[2])

	if domain.IsStreamOrTempName(name) {
		r.logger.Info("skipping stream/temp artifact", "object", name)
		return domain.ResolvedObject{}, fmt.Sprintf("skipping stream/temp artifact by naming convention: %s", name), false
	}

	var (
		definition string
		err        error
		diag       string
	)

	switch kind {
	case domain.KindTable:
		definition, err = r.defs.TableDefinition(ctx, name)

	case domain.KindView:
		definition, err = r.defs.TableDefinition(ctx, name)
		// Views have no insert/update role regardless of what the oracle said.
		if role != domain.RoleNone {
			diag = fmt.Sprintf("view %s reported role %q; forcing N/A", name, role)
			role = domain.RoleNone
		}

	case domain.KindProcedure:
		schema, local, ok := domain.SplitQualifiedName(name)
		if !ok {
			r.logger.Warn("cannot split procedure name", "object", name)
			return domain.ResolvedObject{}, fmt.Sprintf("could not parse schema/name from procedure: %s", name), false
		}
		definition, err = r.defs.ProcedureDefinition(ctx, local, schema)
		role = domain.RoleNone

	default:
		r.logger.Warn("unknown object kind", "kind", kind, "object", name)
		return domain.ResolvedObject{}, fmt.Sprintf("unknown object kind %q for %s", kind, name), false
	}

	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			r.logger.Warn("referenced object not found", "object", name)
		} else {
			r.logger.Warn("definition fetch failed", "object", name, "error", err)
		}
		msg := fmt.Sprintf("failed to fetch definition for %s %s: %v", kind, name, err)
		if diag != "" {
			msg = diag + "; " + msg
		}
		return domain.ResolvedObject{}, msg, false
	}

	r.logger.Info("resolved object", "kind", kind, "object", name, "role", role)
	return domain.ResolvedObject{Name: name, Kind: kind, Role: role, Definition: definition}, diag, true
}
