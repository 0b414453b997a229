package metastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakemerge/internal/domain"
)

func testRepo(t *testing.T) *RunRepo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta.db")
	writeDB, readDB, err := Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})
	require.NoError(t, Migrate(writeDB))
	return NewRunRepo(writeDB)
}

func startedRun(job string) *domain.JobRun {
	now := time.Now().UTC()
	return &domain.JobRun{
		JobName:     job,
		Status:      domain.RunStatusRunning,
		TriggerType: domain.TriggerTypeManual,
		StartedAt:   &now,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.CreateRun(ctx, startedRun("customers-merge"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "customers-merge", got.JobName)
	assert.Equal(t, domain.RunStatusRunning, got.Status)
	assert.Equal(t, domain.TriggerTypeManual, got.TriggerType)
	require.NotNil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.ErrorMessage)
}

func TestCreateRunDefaultsStatus(t *testing.T) {
	repo := testRepo(t)

	created, err := repo.CreateRun(context.Background(), &domain.JobRun{
		JobName:     "j",
		TriggerType: domain.TriggerTypeScheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, created.Status)
}

func TestFinishRun(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	run, err := repo.CreateRun(ctx, startedRun("customers-merge"))
	require.NoError(t, err)

	finished := time.Now().UTC()
	run.Status = domain.RunStatusSuccess
	run.FinishedAt = &finished
	run.Stats = domain.RunStats{RowsRead: 10, RowsWritten: 8, Inserted: 5, Updated: 3, Unchanged: 2}
	require.NoError(t, repo.FinishRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, got.Status)
	assert.Equal(t, run.Stats, got.Stats)
	require.NotNil(t, got.FinishedAt)
}

func TestFinishRunRecordsError(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	run, err := repo.CreateRun(ctx, startedRun("broken"))
	require.NoError(t, err)

	msg := "read source raw.missing: table not found"
	run.Status = domain.RunStatusFailed
	run.ErrorMessage = &msg
	require.NoError(t, repo.FinishRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
}

func TestFinishRunUnknownID(t *testing.T) {
	repo := testRepo(t)

	err := repo.FinishRun(context.Background(), &domain.JobRun{ID: "nope", Status: domain.RunStatusFailed})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestGetRunUnknownID(t *testing.T) {
	repo := testRepo(t)

	_, err := repo.GetRun(context.Background(), "nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestListRuns(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	a, err := repo.CreateRun(ctx, startedRun("job-a"))
	require.NoError(t, err)
	_, err = repo.CreateRun(ctx, startedRun("job-b"))
	require.NoError(t, err)

	a.Status = domain.RunStatusSuccess
	require.NoError(t, repo.FinishRun(ctx, a))

	all, err := repo.ListRuns(ctx, domain.JobRunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	jobA := "job-a"
	byJob, err := repo.ListRuns(ctx, domain.JobRunFilter{JobName: &jobA})
	require.NoError(t, err)
	require.Len(t, byJob, 1)
	assert.Equal(t, a.ID, byJob[0].ID)

	running := domain.RunStatusRunning
	byStatus, err := repo.ListRuns(ctx, domain.JobRunFilter{Status: &running})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "job-b", byStatus[0].JobName)

	limited, err := repo.ListRuns(ctx, domain.JobRunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := repo.ListRuns(ctx, domain.JobRunFilter{JobName: &jobA, Status: &running})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpenPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	writeDB, readDB, err := Open(path, 2)
	require.NoError(t, err)
	defer writeDB.Close()
	defer readDB.Close()

	require.NoError(t, Migrate(writeDB))

	// Writes land through the write pool and are visible to the read pool.
	repo := NewRunRepo(writeDB)
	created, err := repo.CreateRun(context.Background(), startedRun("j"))
	require.NoError(t, err)

	reader := NewRunRepo(readDB)
	got, err := reader.GetRun(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}
