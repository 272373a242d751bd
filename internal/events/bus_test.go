package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	inserted []Event
}

func (m *memStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	ev := Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.inserted = append(m.inserted, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []Event
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.seen = append(r.seen, event)
	return r.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}
	aggregate := uuid.New()

	ev, err := bus.Emit(context.Background(), TopicOrderPaid, aggregate, map[string]any{"refId": 555})
	require.NoError(t, err)

	assert.Equal(t, TopicOrderPaid, ev.Topic)
	assert.Equal(t, aggregate, ev.AggregateID)
	assert.JSONEq(t, `{"refId":555}`, string(ev.Payload))
	require.Len(t, store.inserted, 1)
	require.Len(t, notifier.seen, 1)
}

func TestEmitValidatesInput(t *testing.T) {
	bus := &Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), " ", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicPaymentFailed, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitNotifierFailureStillPersists(t *testing.T) {
	store := &memStore{}
	bus := &Bus{Store: store, Notifiers: []Notifier{&recordingNotifier{err: errors.New("boom")}}}

	_, err := bus.Emit(context.Background(), TopicPaymentCancelled, uuid.New(), nil)
	require.Error(t, err)
	assert.Len(t, store.inserted, 1, "event persisted before notifier ran")
}

func TestEmitRejectsInvalidRawPayload(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	_, err := bus.Emit(context.Background(), TopicOrderPaid, uuid.New(), []byte("{not json"))
	require.Error(t, err)
}
