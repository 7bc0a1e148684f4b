package task_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mholden/brewdeck/internal/task"
)

func TestBusRollingLogEvictsOldest(t *testing.T) {
	assert := assert.New(t)

	bus := task.NewBus(3)
	for i := 1; i <= 5; i++ {
		bus.Publishf("event %d", i)
	}

	assert.Equal(3, bus.Len())
	assert.Equal("event 5", bus.Current())

	events := bus.Snapshot(0)
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = ev.Line
	}
	assert.Equal([]string{"event 3", "event 4", "event 5"}, lines)
}

func TestBusSnapshotReturnsNewestN(t *testing.T) {
	assert := assert.New(t)

	bus := task.NewBus(10)
	for i := 1; i <= 4; i++ {
		bus.Publish(fmt.Sprintf("line %d", i))
	}

	events := bus.Snapshot(2)
	assert.Len(events, 2)
	assert.Equal("line 3", events[0].Line)
	assert.Equal("line 4", events[1].Line)

	// Requesting more than available returns everything
	assert.Len(bus.Snapshot(100), 4)
}

func TestBusCurrentTracksLatest(t *testing.T) {
	assert := assert.New(t)

	bus := task.NewBus(0) // default capacity
	assert.Equal("", bus.Current())

	bus.Publish("first")
	assert.Equal("first", bus.Current())

	bus.Publish("second")
	assert.Equal("second", bus.Current())
	assert.Equal(2, bus.Len())
}
