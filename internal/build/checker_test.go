package build

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rberrors "github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/logging"
)

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("check did not complete")
	}
}

func TestChecker_ReportsCyclesAndMissing(t *testing.T) {
	adjacency := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {"ghost"},
	}

	checker := NewChecker(logging.NewDiscard())
	gen, done := checker.Check(context.Background(), adjacency, nil)
	waitDone(t, done)

	result := checker.Latest()
	require.NotNil(t, result)
	assert.Equal(t, gen, result.Generation)
	assert.Len(t, result.Cycles, 1)
	assert.Equal(t, []string{"ghost"}, result.MissingTargets["c"])
	assert.False(t, checker.Busy())
}

func TestChecker_RunFuncFindingsWin(t *testing.T) {
	checker := NewChecker(logging.NewDiscard())

	parseErr := rberrors.NewMissingHeader("/ws/bad.schema")
	run := func(ctx context.Context) ([]*rberrors.FileError, map[string][]string) {
		return []*rberrors.FileError{parseErr}, map[string][]string{"a": {"ghost"}}
	}

	_, done := checker.Check(context.Background(), map[string][]string{"a": {}}, run)
	waitDone(t, done)

	result := checker.Latest()
	require.NotNil(t, result)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, rberrors.KindMissingHeader, result.Errors[0].Kind)
	// The run's missing map is kept as-is, not recomputed.
	assert.Equal(t, []string{"ghost"}, result.MissingTargets["a"])
}

func TestChecker_BusyWhileRunning(t *testing.T) {
	checker := NewChecker(logging.NewDiscard())

	release := make(chan struct{})
	run := func(ctx context.Context) ([]*rberrors.FileError, map[string][]string) {
		<-release
		return nil, nil
	}

	_, done := checker.Check(context.Background(), map[string][]string{}, run)
	assert.True(t, checker.Busy())
	assert.Nil(t, checker.Latest())

	close(release)
	waitDone(t, done)
	assert.False(t, checker.Busy())
	assert.NotNil(t, checker.Latest())
}

func TestChecker_NewerCheckSupersedesOlder(t *testing.T) {
	checker := NewChecker(logging.NewDiscard())

	releaseOld := make(chan struct{})
	oldRun := func(ctx context.Context) ([]*rberrors.FileError, map[string][]string) {
		<-releaseOld
		return []*rberrors.FileError{rberrors.NewMissingHeader("/ws/stale.schema")}, map[string][]string{}
	}
	newRun := func(ctx context.Context) ([]*rberrors.FileError, map[string][]string) {
		return nil, map[string][]string{}
	}

	oldGen, oldDone := checker.Check(context.Background(), map[string][]string{}, oldRun)

	// A second request arrives while the first is still running.
	newGen, newDone := checker.Check(context.Background(), map[string][]string{}, newRun)
	require.Greater(t, newGen, oldGen)
	waitDone(t, newDone)

	// Let the stale pass finish; its result must be discarded.
	close(releaseOld)
	waitDone(t, oldDone)

	result := checker.Latest()
	require.NotNil(t, result)
	assert.Equal(t, newGen, result.Generation)
	assert.Empty(t, result.Errors)
}

func TestChecker_GenerationsIncrease(t *testing.T) {
	checker := NewChecker(logging.NewDiscard())

	var last uint64
	for i := 0; i < 3; i++ {
		gen, done := checker.Check(context.Background(), map[string][]string{}, nil)
		waitDone(t, done)
		assert.Greater(t, gen, last)
		last = gen
	}
	assert.Equal(t, last, checker.Latest().Generation)
}
