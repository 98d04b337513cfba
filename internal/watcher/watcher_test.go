package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refnlabs/refbuild/internal/logging"
)

func TestSchemaFileFilter(t *testing.T) {
	assert.True(t, SchemaFileFilter("/ws/user.schema"))
	assert.False(t, SchemaFileFilter("/ws/user.schema.bak"))
	assert.False(t, SchemaFileFilter("/ws/notes.txt"))
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "created", EventTypeCreated.String())
	assert.Equal(t, "modified", EventTypeModified.String())
	assert.Equal(t, "deleted", EventTypeDeleted.String())
	assert.Equal(t, "renamed", EventTypeRenamed.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestDebouncer_CollapsesBurstIntoOneBatch(t *testing.T) {
	d := &Debouncer{
		delay:  50 * time.Millisecond,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.start(ctx)

	for i := 0; i < 5; i++ {
		d.events <- ChangeEvent{Type: EventTypeModified, Path: "/ws/user.schema"}
	}

	select {
	case batch := <-d.output:
		assert.Len(t, batch, 5)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}

	// No second batch follows an exhausted burst.
	select {
	case batch := <-d.output:
		t.Fatalf("unexpected extra batch of %d events", len(batch))
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_LateEventResetsTimer(t *testing.T) {
	d := &Debouncer{
		delay:  80 * time.Millisecond,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.start(ctx)

	d.events <- ChangeEvent{Path: "/ws/a.schema"}
	time.Sleep(40 * time.Millisecond)
	d.events <- ChangeEvent{Path: "/ws/b.schema"}

	select {
	case batch := <-d.output:
		// Both events arrive in the same batch because the second reset the timer.
		assert.Len(t, batch, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestFileWatcher_DeliversFilteredBatches(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFileWatcher(50*time.Millisecond, logging.NewDiscard())
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(SchemaFileFilter)

	var mu sync.Mutex
	var received []ChangeEvent
	got := make(chan struct{}, 1)
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		received = append(received, events...)
		mu.Unlock()
		select {
		case got <- struct{}{}:
		default:
		}
		return nil
	})

	require.NoError(t, fw.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.schema"), []byte("@schema name=user\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("noise\n"), 0o644))

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, received)
	for _, event := range received {
		assert.Equal(t, "user.schema", filepath.Base(event.Path))
	}
}
