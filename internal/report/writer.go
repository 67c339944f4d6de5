package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sqlregress/internal/domain"
)

var _ domain.ReportWriter = (*JSONWriter)(nil)

// JSONWriter writes one JSON report file per run into a directory.
type JSONWriter struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewJSONWriter creates a writer rooted at dir. The directory is created on
// first write.
func NewJSONWriter(dir string, logger *slog.Logger) *JSONWriter {
	return &JSONWriter{
		dir:    dir,
		logger: logger.With("component", "report-writer"),
		now:    time.Now,
	}
}

// WriteProcedureReport materializes a procedure run report and returns its
// path. Any failure is a *domain.ReportError; a run with no artifact is
// useless to the caller, so these are always escalated.
func (w *JSONWriter) WriteProcedureReport(state *domain.RunState) (string, error) {
	runID := uuid.New().String()
	doc := BuildProcedureReport(runID, state, w.now().UTC())
	name := fmt.Sprintf("procedure_%s_%s_%s.json",
		fileSafe(state.ProcedureSchema), fileSafe(state.ProcedureName), runID)
	return w.write(name, doc)
}

// WritePipeReport materializes a pipe run report and returns its path.
func (w *JSONWriter) WritePipeReport(state *domain.PipeRunState) (string, error) {
	runID := uuid.New().String()
	doc := BuildPipeReport(runID, state, w.now().UTC())
	name := fmt.Sprintf("pipe_%s_%s_%s.json",
		fileSafe(state.PipeSchema), fileSafe(state.PipeName), runID)
	return w.write(name, doc)
}

func (w *JSONWriter) write(name string, doc interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", domain.ErrReport("create report directory %s: %v", w.dir, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", domain.ErrReport("encode report: %v", err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", domain.ErrReport("write report %s: %v", path, err)
	}
	w.logger.Info("report written", "path", path)
	return path, nil
}

func fileSafe(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
