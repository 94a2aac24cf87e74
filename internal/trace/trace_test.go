package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-deadline:
			return out
		}
	}
}

func TestStageStarted_TransitionsToRunning(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "盗窃如何定罪")

	tr.StageStarted(qt, 1, "classification")

	assert.Equal(t, StatusRunning, qt.Classification.Status)
}

func TestStageCompleted_RecordsStatusAndDuration(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "盗窃如何定罪")

	tr.StageStarted(qt, 1, "classification")
	tr.StageCompleted(qt, 1, "classification", StatusSuccess, map[string]any{"is_criminal_law": true}, "")

	assert.Equal(t, StatusSuccess, qt.Classification.Status)
	assert.GreaterOrEqual(t, qt.Classification.ProcessingTimeMs, int64(0))
}

func TestModuleSkipped_NeverTransitionsToRunning(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "今天天气怎么样")

	tr.ModuleSkipped(qt, "llm_enhanced")

	mod := qt.module("llm_enhanced")
	require.NotNil(t, mod)
	assert.Equal(t, StatusSkipped, mod.Status)
}

func TestModuleCompleted_IgnoresUnregisteredModule(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "盗窃")

	assert.NotPanics(t, func() {
		tr.ModuleCompleted(qt, "never_started", StatusSuccess, 0, "")
	})
}

func TestSubscribe_ReceivesPublishedEvents(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "盗窃")
	ch, unsubscribe := tr.Subscribe()
	defer unsubscribe()

	tr.StageStarted(qt, 1, "classification")

	events := drain(t, ch, 100*time.Millisecond)
	require.NotEmpty(t, events)
	assert.Equal(t, EventStageStarted, events[0].Type)
	assert.Equal(t, "classification", events[0].StageName)
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	tr := NewTracer()
	ch, unsubscribe := tr.Subscribe()

	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestSubscribe_MultipleSubscribersEachReceiveEvents(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "盗窃")

	ch1, unsub1 := tr.Subscribe()
	ch2, unsub2 := tr.Subscribe()
	defer unsub1()
	defer unsub2()

	tr.SearchCompleted(42, "2 articles, 1 case")

	events1 := drain(t, ch1, 100*time.Millisecond)
	events2 := drain(t, ch2, 100*time.Millisecond)
	require.NotEmpty(t, events1)
	require.NotEmpty(t, events2)
	assert.Equal(t, EventSearchCompleted, events1[0].Type)
	assert.Equal(t, EventSearchCompleted, events2[0].Type)
}

func TestPublish_DropsOldestWhenSubscriberBufferFull(t *testing.T) {
	tr := NewTracer()
	qt := NewQueryTrace("req-1", "盗窃")
	ch, unsubscribe := tr.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		tr.ModuleStarted(qt, "basic_semantic")
	}

	assert.NotPanics(t, func() {
		drain(t, ch, 50*time.Millisecond)
	})
	assert.LessOrEqual(t, len(ch), subscriberBuffer)
}
