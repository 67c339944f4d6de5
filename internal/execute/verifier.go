package execute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sqlregress/internal/domain"
)

// Verifier is the terminal stage of a pipe run: it uploads the generated
// payload to the external stage, waits for asynchronous ingestion to settle,
// then counts and snapshots the target table.
type Verifier struct {
	runner domain.QueryRunner
	blobs  domain.BlobStore
	settle time.Duration
	sleep  func(time.Duration)
	logger *slog.Logger
}

// NewVerifier creates a Verifier. The settle interval is how long ingestion
// is given before the target table is inspected.
func NewVerifier(runner domain.QueryRunner, blobs domain.BlobStore, settle time.Duration, logger *slog.Logger) *Verifier {
	return &Verifier{
		runner: runner,
		blobs:  blobs,
		settle: settle,
		sleep:  time.Sleep,
		logger: logger.With("component", "ingestion-verifier"),
	}
}

// Verify uploads the payload and checks the target table. If an earlier
// stage already set a hard error, no upload and no query are issued; only
// the final status message is populated.
func (v *Verifier) Verify(ctx context.Context, state *domain.PipeRunState) {
	logger := v.logger.With("pipe", state.PipeSchema+"."+state.PipeName)

	if state.Failed() {
		logger.Warn("skipping upload and verification due to previous errors")
		state.FinalMessage = fmt.Sprintf("Test skipped due to errors: %s", state.ErrMessage)
		return
	}

	if state.CSVContent == "" || state.CSVFilename == "" || state.StagePath == "" || state.TargetTable == "" {
		msg := "missing required data for upload and verification (payload, filename, stage path, or target table)"
		logger.Error(msg)
		state.SetError(msg)
		state.FinalMessage = "Test failed: " + msg
		return
	}

	if v.blobs == nil {
		msg := "no blob backend configured; cannot upload to the external stage"
		logger.Error(msg)
		state.SetError(msg)
		state.FinalMessage = "Test failed: " + msg
		return
	}

	logger.Info("uploading payload", "filename", state.CSVFilename, "path", state.StagePath)
	if err := v.blobs.Upload(ctx, []byte(state.CSVContent), state.StagePath, state.CSVFilename); err != nil {
		msg := fmt.Sprintf("failed to upload file %s to stage path %s: %v", state.CSVFilename, state.StagePath, err)
		logger.Error("upload failed", "error", err)
		state.SetError(msg)
		state.FinalMessage = "Test failed: " + msg
		return
	}
	state.Uploaded = true
	state.Logf("uploaded %s to stage path %s", state.CSVFilename, state.StagePath)

	logger.Info("waiting for ingestion to settle", "interval", v.settle)
	v.sleep(v.settle)

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", state.TargetTable)
	state.VerificationQuery = query
	count, err := v.runner.Count(ctx, query)
	switch {
	case errors.Is(err, domain.ErrNoRows):
		// A COUNT(*) returning no rows at all is unexpected; treat the
		// outcome as uncertain with a row count of zero.
		logger.Warn("verification query returned no data", "query", query)
		state.SetError(fmt.Sprintf("verification query returned no data (unexpected): %s", query))
		zero := int64(0)
		state.VerificationCount = &zero
		state.FinalMessage = "Test status uncertain: upload OK, but the verification query returned no data. Row count: 0."
	case err != nil:
		msg := fmt.Sprintf("failed to execute verification query: %s", query)
		logger.Error("verification query failed", "error", err)
		state.SetError(msg)
		state.FinalMessage = fmt.Sprintf("Test partially succeeded (upload OK), but verification failed: %s", msg)
	default:
		state.VerificationCount = &count
		generated := generatedRows(state.CSVContent)
		logger.Info("verification query succeeded", "count", count, "generated", generated)
		if count > 0 {
			state.FinalMessage = fmt.Sprintf("Test successful: upload OK. Found %d rows in %s after waiting (generated %d rows).", count, state.TargetTable, generated)
		} else {
			state.FinalMessage = fmt.Sprintf("Test potentially failed: upload OK, but found 0 rows in %s after waiting (generated %d rows).", state.TargetTable, generated)
		}
		state.Logf("row count in %s after settle: %d (generated %d rows)", state.TargetTable, count, generated)
	}

	// Best-effort snapshot for the report; fetched even when the count was
	// zero so the report can show an empty table.
	if snap, err := v.runner.QueryTable(ctx, "SELECT * FROM "+state.TargetTable); err != nil {
		logger.Warn("failed to fetch target table snapshot", "table", state.TargetTable, "error", err)
		state.Logf("warning: failed to fetch data from %s for reporting", state.TargetTable)
	} else {
		state.TargetSnapshot = *snap
	}
}

// generatedRows counts the data rows in the payload, excluding the header.
func generatedRows(csvContent string) int {
	n := len(strings.Split(strings.TrimSpace(csvContent), "\n")) - 1
	if n < 0 {
		return 0
	}
	return n
}
