package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"sqlregress/internal/domain"
)

const feedPromptTemplate = `You are an expert data generator for warehouse ingestion-pipe testing.
Your task is to generate realistic sample CSV data (3-5 rows) that can be loaded via the given pipe into the target table.

Target Table Name: %s
Target Table DDL:
` + "```sql\n%s\n```" + `

Pipe DDL (pay attention to the column mapping in the COPY INTO statement, e.g. $1, $2...):
` + "```sql\n%s\n```" + `

Instructions:
1. Analyze the target table DDL to understand column names and data types (VARCHAR, NUMBER, DATE, TIMESTAMP, ...).
2. Analyze the pipe DDL's COPY INTO ... FROM (SELECT t.$1, t.$2 ...) section to understand the mapping between CSV columns ($1, $2, ...) and table columns.
3. Generate CSV data where the number of columns matches the highest $N used in the pipe's SELECT clause.
4. Create 3 to 5 rows of sample data. Ensure the data types are appropriate for the corresponding target table columns based on the pipe mapping.
5. Crucially: do NOT include columns the pipe generates itself (e.g. METADATA$FILENAME, METADATA$FILE_ROW_NUMBER, CURRENT_TIMESTAMP()). Only include columns corresponding to the $N placeholders.
6. Format the output as a standard CSV string: a header row with simple names in $N order, comma as the delimiter, newline as the row separator, strings containing commas enclosed in double quotes.

Respond with ONLY a JSON object of the form:
{"csv_content": "...", "comment": "..."}`

// feedOutput is the fixed two-field schema for generated payloads.
type feedOutput struct {
	CSVContent string `json:"csv_content"`
	Comment    string `json:"comment"`
}

// FeedGenerator produces a synthetic CSV payload matching a pipe's column
// mapping.
type FeedGenerator struct {
	oracle domain.Oracle
	logger *slog.Logger
}

// NewFeedGenerator creates a FeedGenerator.
func NewFeedGenerator(oracle domain.Oracle, logger *slog.Logger) *FeedGenerator {
	return &FeedGenerator{oracle: oracle, logger: logger.With("component", "feedgen")}
}

// GenerateFeed asks the oracle for a payload and validates it: the response
// must match the two-field schema, and the payload must be non-empty with at
// least a header row and one data row. A validation failure is returned as a
// *domain.GenerationError for the caller to record as the run's hard error.
func (g *FeedGenerator) GenerateFeed(ctx context.Context, pipeName, targetTable, pipeDDL, tableDDL string) (content, filename string, err error) {
	prompt := fmt.Sprintf(feedPromptTemplate, targetTable, tableDDL, pipeDDL)

	response, err := g.oracle.Generate(ctx, prompt)
	if err != nil {
		g.logger.Error("feed generation failed", "error", err)
		return "", "", domain.ErrGeneration("feed generation failed: %v", err)
	}

	var out feedOutput
	if err := json.Unmarshal([]byte(extractJSON(response)), &out); err != nil {
		g.logger.Error("feed output rejected", "error", err)
		return "", "", domain.ErrGeneration("failed to parse generated payload: %v", err)
	}

	payload := strings.TrimSpace(out.CSVContent)
	if payload == "" || !strings.Contains(payload, "\n") {
		return "", "", domain.ErrGeneration("generated payload is empty or lacks structure")
	}

	filename = fmt.Sprintf("%s_test_%s.csv", strings.ToLower(pipeName), uuid.New().String())
	g.logger.Info("feed generated", "filename", filename, "comment", out.Comment)
	return payload, filename, nil
}
