package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := TaskID{Stage: "Assembly", Lineage: "A"}

	assert.Equal(t, Pending, s.Status(ctx, id))

	s.SetStatus(ctx, id, Running)
	assert.Equal(t, Running, s.Status(ctx, id))
	assert.False(t, s.Status(ctx, id).Terminal())

	s.SetStatus(ctx, id, Completed)
	assert.True(t, s.Status(ctx, id).Terminal())
	assert.Equal(t, "completed", s.Status(ctx, id).String())
}

func TestForget(t *testing.T) {
	store := New()
	ctx := context.Background()
	id := TaskID{Stage: "Report", Lineage: "A"}

	store.SetStatus(ctx, id, Pending)
	require.Len(t, store.Tasks(), 1)

	store.Forget(ctx, id)
	assert.Empty(t, store.Tasks())
	assert.Zero(t, store.Count(Pending))
}

func TestSetAndGetOutputs(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := TaskID{Stage: "Abricate", Lineage: "A", Param: "vfdb"}

	assert.Nil(t, s.Outputs(ctx, id))

	want := map[string][]channel.FileRef{"abricate": {{Path: "A.tab"}}}
	s.SetOutputs(ctx, id, want)
	assert.Equal(t, want, s.Outputs(ctx, id))
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := TaskID{Stage: "Assembly", Lineage: "D"}

	assert.Nil(t, s.Error(ctx, id))

	want := errors.New("exit status 1")
	s.SetError(ctx, id, want)
	require.Error(t, s.Error(ctx, id))
	assert.Equal(t, want, s.Error(ctx, id))
}

func TestTaskID_String(t *testing.T) {
	assert.Equal(t, "Assembly[A]", TaskID{Stage: "Assembly", Lineage: "A"}.String())
	assert.Equal(t, "Abricate[A#vfdb]", TaskID{Stage: "Abricate", Lineage: "A", Param: "vfdb"}.String())
}

func TestTasksAreSorted(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.SetStatus(ctx, TaskID{Stage: "Type", Lineage: "B"}, Completed)
	s.SetStatus(ctx, TaskID{Stage: "Assemble", Lineage: "B"}, Completed)
	s.SetStatus(ctx, TaskID{Stage: "Abricate", Lineage: "A", Param: "vfdb"}, Failed)
	s.SetStatus(ctx, TaskID{Stage: "Abricate", Lineage: "A", Param: "card"}, Completed)

	assert.Equal(t, []TaskID{
		{Stage: "Abricate", Lineage: "A", Param: "card"},
		{Stage: "Abricate", Lineage: "A", Param: "vfdb"},
		{Stage: "Assemble", Lineage: "B"},
		{Stage: "Type", Lineage: "B"},
	}, s.Tasks())
	assert.Equal(t, 3, s.Count(Completed))
	assert.Equal(t, 1, s.Count(Failed))
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id := TaskID{Stage: "Stage", Lineage: fmt.Sprintf("L%d", i)}
			s.SetStatus(ctx, id, Completed)
			s.SetOutputs(ctx, id, map[string][]channel.FileRef{"out": {{Path: fmt.Sprint(i)}}})
			s.SetError(ctx, id, fmt.Errorf("error for task %d", i))
		}(i)
	}
	wg.Wait()

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id := TaskID{Stage: "Stage", Lineage: fmt.Sprintf("L%d", i)}
			assert.Equal(t, Completed, s.Status(ctx, id), "mismatched status for task %d", i)
			assert.Equal(t, fmt.Sprint(i), s.Outputs(ctx, id)["out"][0].Path)
			assert.EqualError(t, s.Error(ctx, id), fmt.Sprintf("error for task %d", i))
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Tasks(), numGoroutines)
}
