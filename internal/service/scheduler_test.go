package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
runs:
  - kind: procedure
    name: USP_LOAD
    schema: ANALYTICS
    cron: "0 2 * * *"
  - kind: pipe
    name: ORDERS_PIPE
    schema: INGEST
    cron: "@hourly"
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Runs, 2)
	assert.Equal(t, "procedure", m.Runs[0].Kind)
	assert.Equal(t, "@hourly", m.Runs[1].Cron)
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad kind", "runs:\n  - kind: view\n    name: X\n    schema: S\n    cron: \"* * * * *\"\n"},
		{"missing name", "runs:\n  - kind: procedure\n    schema: S\n    cron: \"* * * * *\"\n"},
		{"missing cron", "runs:\n  - kind: procedure\n    name: X\n    schema: S\n"},
		{"not yaml", "runs: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSchedulerRegisterRejectsBadCron(t *testing.T) {
	svc := newTestService(t, &stubDefs{}, &stubOracle{}, &stubRunner{}, &stubBlob{})
	sched := NewScheduler(svc, testLogger())

	err := sched.Register(&Manifest{Runs: []ScheduledRun{
		{Kind: "procedure", Name: "X", Schema: "S", Cron: "not a cron"},
	}})
	assert.Error(t, err)
}

func TestSchedulerRegisterValid(t *testing.T) {
	svc := newTestService(t, &stubDefs{}, &stubOracle{}, &stubRunner{}, &stubBlob{})
	sched := NewScheduler(svc, testLogger())

	err := sched.Register(&Manifest{Runs: []ScheduledRun{
		{Kind: "pipe", Name: "ORDERS_PIPE", Schema: "INGEST", Cron: "@daily"},
	}})
	assert.NoError(t, err)
}
