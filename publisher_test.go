package vesselsync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/vesselsync/model"
)

// fakeSession is an in-memory BrokerSession used across service tests.
type fakeSession struct {
	connected    bool
	publishErr   error
	subscribeErr error

	published    []publishedMessage
	subscribed   []string
	unsubscribed []string
	handlers     map[string]MessageHandler
}

type publishedMessage struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

func newFakeSession(connected bool) *fakeSession {
	return &fakeSession{
		connected: connected,
		handlers:  make(map[string]MessageHandler),
	}
}

func (s *fakeSession) IsConnected() bool { return s.connected }

func (s *fakeSession) Publish(topic string, qos byte, retain bool, payload []byte) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, publishedMessage{topic, qos, retain, payload})
	return nil
}

func (s *fakeSession) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.subscribed = append(s.subscribed, topic)
	s.handlers[topic] = handler
	return nil
}

func (s *fakeSession) Unsubscribe(topics ...string) error {
	s.unsubscribed = append(s.unsubscribed, topics...)
	return nil
}

func newTestPublisher(t *testing.T, session *fakeSession, queue *OfflineQueue) *Publisher {
	t.Helper()
	p, err := NewPublisher(
		WithPublisherSession(session),
		WithPublisherQueue(queue),
		WithPublisherLogger(&NoopLogger{}),
	)
	require.NoError(t, err)
	return p
}

func TestNewPublisher_RequiredOptions(t *testing.T) {
	_, err := NewPublisher(WithPublisherLogger(&NoopLogger{}))
	assert.Error(t, err)

	_, err = NewPublisher(
		WithPublisherSession(newFakeSession(true)),
		WithPublisherQueue(NewOfflineQueue(10)),
	)
	assert.Error(t, err)
}

func TestPublisher_PublishChange_Connected(t *testing.T) {
	session := newFakeSession(true)
	p := newTestPublisher(t, session, NewOfflineQueue(10))

	err := p.PublishWorkOrderChange(model.OpCreate, map[string]interface{}{"id": "wo-1"})

	require.NoError(t, err)
	require.Len(t, session.published, 1)
	assert.Equal(t, "vessel/sync/work_orders", session.published[0].topic)
	assert.Equal(t, byte(1), session.published[0].qos)
	assert.True(t, session.published[0].retain)
	assert.Equal(t, 0, p.QueueLength())

	env, err := model.DecodeEnvelope(session.published[0].payload)
	require.NoError(t, err)
	assert.Equal(t, model.KindDataChange, env.Kind)
	assert.Equal(t, "wo-1", env.Data["id"])
}

func TestPublisher_PublishAlertChange_QoS2(t *testing.T) {
	session := newFakeSession(true)
	p := newTestPublisher(t, session, NewOfflineQueue(10))

	require.NoError(t, p.PublishAlertChange(model.OpCreate, map[string]interface{}{"id": "a-1"}))

	require.Len(t, session.published, 1)
	assert.Equal(t, "vessel/sync/alerts", session.published[0].topic)
	assert.Equal(t, byte(2), session.published[0].qos)
}

func TestPublisher_PublishChange_Disconnected_Queues(t *testing.T) {
	session := newFakeSession(false)
	queue := NewOfflineQueue(10)
	p := newTestPublisher(t, session, queue)

	err := p.PublishCrewChange(model.OpUpdate, map[string]interface{}{"id": "c-1"})

	// Queued, not an error: offline publishing is normal operation.
	require.NoError(t, err)
	assert.Empty(t, session.published)
	assert.Equal(t, 1, queue.Len())
}

func TestPublisher_PublishChange_BrokerFailure_QueuesAndErrors(t *testing.T) {
	session := newFakeSession(true)
	session.publishErr = errors.New("broker rejected")
	queue := NewOfflineQueue(10)
	p := newTestPublisher(t, session, queue)

	err := p.PublishEquipmentChange(model.OpDelete, map[string]interface{}{"id": "eq-1"})

	require.Error(t, err)
	var syncErr *Error
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, ErrCodePublish, syncErr.Code)
	assert.Equal(t, 1, queue.Len())
}

func TestPublisher_Flush_FIFO(t *testing.T) {
	session := newFakeSession(false)
	queue := NewOfflineQueue(10)
	p := newTestPublisher(t, session, queue)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.PublishWorkOrderChange(model.OpUpdate,
			map[string]interface{}{"id": fmt.Sprintf("wo-%d", i)}))
	}
	require.Equal(t, 3, queue.Len())

	session.connected = true
	flushed := p.Flush()

	assert.Equal(t, 3, flushed)
	assert.Equal(t, 0, queue.Len())
	require.Len(t, session.published, 3)
	for i, pub := range session.published {
		env, err := model.DecodeEnvelope(pub.payload)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("wo-%d", i), env.Data["id"])
	}
}

func TestPublisher_Flush_FreshMessageIDs(t *testing.T) {
	session := newFakeSession(false)
	queue := NewOfflineQueue(10)
	p := newTestPublisher(t, session, queue)

	require.NoError(t, p.PublishWorkOrderChange(model.OpCreate, map[string]interface{}{"id": "wo-1"}))

	queued, ok := queue.Dequeue()
	require.True(t, ok)
	originalID := queued.Envelope.MessageID
	queue.Enqueue(queued)

	session.connected = true
	p.Flush()

	require.Len(t, session.published, 1)
	env, err := model.DecodeEnvelope(session.published[0].payload)
	require.NoError(t, err)
	assert.NotEqual(t, originalID, env.MessageID)
}

func TestPublisher_Flush_FailureRequeuedAtTail(t *testing.T) {
	session := newFakeSession(false)
	queue := NewOfflineQueue(10)
	p := newTestPublisher(t, session, queue)

	require.NoError(t, p.PublishWorkOrderChange(model.OpUpdate, map[string]interface{}{"id": "wo-0"}))
	require.NoError(t, p.PublishWorkOrderChange(model.OpUpdate, map[string]interface{}{"id": "wo-1"}))

	// Broker rejects everything: the pass visits each original message once
	// and requeues it; requeued messages are not retried within the pass.
	session.connected = true
	session.publishErr = errors.New("still down")
	flushed := p.Flush()

	assert.Equal(t, 0, flushed)
	assert.Equal(t, 2, queue.Len())

	first, _ := queue.Dequeue()
	second, _ := queue.Dequeue()
	assert.Equal(t, "wo-0", first.Envelope.Data["id"])
	assert.Equal(t, "wo-1", second.Envelope.Data["id"])
}

func TestPublisher_Flush_RequeueNotRecountedAsQueued(t *testing.T) {
	session := newFakeSession(false)
	queue := NewOfflineQueue(10)
	metrics := NewMetrics()

	p, err := NewPublisher(
		WithPublisherSession(session),
		WithPublisherQueue(queue),
		WithPublisherLogger(&NoopLogger{}),
		WithPublisherMetrics(metrics),
	)
	require.NoError(t, err)

	require.NoError(t, p.PublishWorkOrderChange(model.OpUpdate, map[string]interface{}{"id": "wo-1"}))
	require.Equal(t, int64(1), metrics.Snapshot().Queued)

	// Repeated failed flushes requeue the same message; the queued counter
	// keeps tracking messages parked, not requeue operations.
	session.connected = true
	session.publishErr = errors.New("still down")
	p.Flush()
	p.Flush()

	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, int64(1), metrics.Snapshot().Queued)
	assert.Equal(t, int64(2), metrics.Snapshot().PublishFailures)
}

func TestPublisher_Flush_EmptyQueue(t *testing.T) {
	session := newFakeSession(true)
	p := newTestPublisher(t, session, NewOfflineQueue(10))

	assert.Equal(t, 0, p.Flush())
	assert.Empty(t, session.published)
}

func TestPublisher_DropNotification(t *testing.T) {
	session := newFakeSession(false)
	queue := NewOfflineQueue(1)
	notifier := &recordingNotifier{}

	p, err := NewPublisher(
		WithPublisherSession(session),
		WithPublisherQueue(queue),
		WithPublisherLogger(&NoopLogger{}),
		WithPublisherNotifications(notifier),
	)
	require.NoError(t, err)

	require.NoError(t, p.PublishWorkOrderChange(model.OpUpdate, map[string]interface{}{"id": "wo-0"}))
	require.NoError(t, p.PublishWorkOrderChange(model.OpUpdate, map[string]interface{}{"id": "wo-1"}))

	require.Len(t, notifier.droppedMessages, 1)
	assert.Equal(t, 1, queue.Len())
}

func TestPublisher_OfflineBacklogScenario(t *testing.T) {
	// Vessel goes offline mid-shift, accumulates changes, reconnects.
	session := newFakeSession(true)
	queue := NewOfflineQueue(100)
	p := newTestPublisher(t, session, queue)

	require.NoError(t, p.PublishWorkOrderChange(model.OpCreate, map[string]interface{}{"id": "wo-1"}))

	session.connected = false
	for i := 0; i < 5; i++ {
		require.NoError(t, p.PublishAlertChange(model.OpCreate,
			map[string]interface{}{"id": fmt.Sprintf("a-%d", i)}))
	}
	assert.Equal(t, 5, queue.Len())

	session.connected = true
	assert.Equal(t, 5, p.Flush())
	assert.Equal(t, 0, queue.Len())
	assert.Len(t, session.published, 6)
}
