package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu   sync.Mutex
	msgs [][]byte
	fail bool
}

func (f *fakeClient) Send(m []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.msgs = append(f.msgs, m)
	return true
}

func (f *fakeClient) Close() {}

func TestHub_PublishRoutesByTopic(t *testing.T) {
	h := NewHub()
	all := &fakeClient{}
	series := &fakeClient{}
	other := &fakeClient{}
	h.Subscribe(TopicTasks, all)
	h.Subscribe("series-a", series)
	h.Subscribe("series-b", other)

	require.NoError(t, h.Publish(Event{Type: EventOccurrenceSpawned, TaskID: 2, SeriesID: "series-a"}))

	require.Len(t, all.msgs, 1)
	require.Len(t, series.msgs, 1)
	require.Empty(t, other.msgs)

	var ev Event
	require.NoError(t, json.Unmarshal(series.msgs[0], &ev))
	require.Equal(t, EventOccurrenceSpawned, ev.Type)
	require.EqualValues(t, 2, ev.TaskID)
	require.False(t, ev.SentAt.IsZero())
}

func TestHub_PublishReportsFailedWrites(t *testing.T) {
	h := NewHub()
	h.Subscribe(TopicTasks, &fakeClient{fail: true})
	h.Subscribe(TopicTasks, &fakeClient{})

	err := h.Publish(Event{Type: EventTaskCreated, TaskID: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 subscriber writes failed")
}

func TestHub_UnsubscribeDropsEmptyTopic(t *testing.T) {
	h := NewHub()
	c := &fakeClient{}
	h.Subscribe("series-a", c)
	require.Equal(t, 1, h.Subscribers("series-a"))

	h.Unsubscribe("series-a", c)
	require.Zero(t, h.Subscribers("series-a"))
	require.Zero(t, h.Broadcast("series-a", []byte("x")))
}
