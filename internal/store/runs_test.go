package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun_AssignsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.RecordRun(ctx, Run{ID: "run-b", Document: "q1", Fingerprint: "f1", Canonical: "from ...", Status: "ok", Items: 3})
	require.NoError(t, err)
	b, err := s.RecordRun(ctx, Run{ID: "run-a", Document: "q2", Fingerprint: "f2", Canonical: "from ...", Status: "error", ErrorCode: "EXECUTION"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.Seq)
	assert.Equal(t, int64(2), b.Seq)

	runs, err := s.Runs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []Run{a, b}, runs, "seq order, not id order")
}

func TestRecordRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := Run{ID: "run-1", Document: "q", Fingerprint: "f", Canonical: "c", Status: "ok"}

	_, err := s.RecordRun(ctx, r)
	require.NoError(t, err)
	_, err = s.RecordRun(ctx, r)

	assert.Error(t, err)
}

func TestRecordRun_RejectsUnknownStatus(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RecordRun(context.Background(), Run{ID: "x", Status: "pending"})

	assert.Error(t, err)
}

func TestRuns_FilterByFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for i, fp := range []string{"f1", "f2", "f1"} {
		_, err := s.RecordRun(ctx, Run{ID: string(rune('a' + i)), Fingerprint: fp, Status: "ok"})
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "c", runs[1].ID)

	none, err := s.Runs(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
