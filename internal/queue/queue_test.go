package queue

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNewRundownEvent(t *testing.T) {
	a := NewRundownEvent(EventItemAdded, 3)
	b := NewRundownEvent(EventItemAdded, 3)
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, EventItemAdded, a.Type)
	_, err := time.Parse(time.RFC3339, a.OccurredAt)
	assert.NoError(t, err)
}

func TestEncode(t *testing.T) {
	ev := NewRundownEvent(EventItemDeleted, 9)
	ev.ItemID = 4
	pub, err := encode(ev)
	require.NoError(t, err)
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, ev.EventID, pub.MessageId)

	var back RundownEvent
	require.NoError(t, json.Unmarshal(pub.Body, &back))
	assert.Equal(t, ev, back)
}

func TestHandleMessageAppendsAuditLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rundown-audit.log")
	c := NewConsumer("amqp://unused", path, quietLogger())

	ev := NewRundownEvent(EventRundownStatus, 12)
	ev.Status = "LIVE"
	ev.ItemCount, ev.TotalDuration = 3, 540
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.HandleMessage(body))
	require.NoError(t, c.HandleMessage(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "rundown.status")
	assert.Contains(t, lines[0], "rundown_id=12")
	assert.Contains(t, lines[0], "total=540s")
	assert.Contains(t, lines[0], "status=LIVE")
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	c := NewConsumer("amqp://unused", filepath.Join(t.TempDir(), "audit.log"), quietLogger())
	assert.Error(t, c.HandleMessage([]byte("{not json")))
	assert.Error(t, c.HandleMessage([]byte(`{"event_id":"x"}`)))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsumer("amqp://127.0.0.1:1/", filepath.Join(t.TempDir(), "audit.log"), quietLogger())
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), NewRundownEvent(EventItemAdded, 1)))
}

func TestDialTimeout(t *testing.T) {
	assert.Equal(t, maxDialTimeout, dialTimeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := dialTimeout(ctx)
	assert.LessOrEqual(t, got, 2*time.Second)
	assert.Greater(t, got, time.Second)

	long, cancelLong := context.WithTimeout(context.Background(), time.Hour)
	defer cancelLong()
	assert.Equal(t, maxDialTimeout, dialTimeout(long))

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Positive(t, dialTimeout(expired))
}

// A broker that accepts the connection but never answers must not hold
// Publish past the caller's deadline.
func TestPublishGivesUpAtContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	p := NewPublisher("amqp://guest:guest@"+ln.Addr().String()+"/", quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	started := time.Now()
	err = p.Publish(ctx, NewRundownEvent(EventItemAdded, 1))
	assert.Error(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)
}
