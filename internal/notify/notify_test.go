package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

var (
	start = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	event = model.Event{ID: "ev-1", Name: "Spring Concert", StartTime: start, UpdatedAt: start.Add(-time.Hour)}
)

func TestPublisherEventCancelled(t *testing.T) {
	ch := &fakeChannel{}
	log := zerolog.Nop()
	p := newPublisher(ch, "campus-events", &log)

	regs := []model.Registration{
		{UserID: "u1", Status: model.RegistrationRegistered},
		{UserID: "u2", Status: model.RegistrationCancelled},
		{UserID: "u3", Status: model.RegistrationWaitlisted},
	}
	require.NoError(t, p.EventCancelled(context.Background(), event, regs))
	require.Len(t, ch.sent, 1)

	sent := ch.sent[0]
	assert.Equal(t, "campus-events", sent.exchange)
	assert.Equal(t, KeyEventCancelled, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)

	var msg EventCancelledMessage
	require.NoError(t, json.Unmarshal(sent.msg.Body, &msg))
	assert.Equal(t, []string{"u1", "u3"}, msg.UserIDs)
	assert.Equal(t, "Spring Concert", msg.EventName)
}

func TestPublisherRegistrationPromoted(t *testing.T) {
	ch := &fakeChannel{}
	log := zerolog.Nop()
	p := newPublisher(ch, "x", &log)

	reg := model.Registration{ID: "r-9", UserID: "u9", Category: "performer"}
	require.NoError(t, p.RegistrationPromoted(context.Background(), event, reg))
	require.Len(t, ch.sent, 1)
	assert.Equal(t, KeyRegistrationPromoted, ch.sent[0].key)
	assert.Equal(t, "r-9", ch.sent[0].msg.MessageId)

	ch.err = errors.New("channel closed")
	err := p.RegistrationPromoted(context.Background(), event, reg)
	assert.ErrorContains(t, err, "channel closed")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	n := NewLogNotifier(&log)

	require.NoError(t, n.EventCancelled(context.Background(), event, []model.Registration{{UserID: "u1", Status: model.RegistrationRegistered}}))
	require.NoError(t, n.RegistrationPromoted(context.Background(), event, model.Registration{ID: "r1", UserID: "u2"}))

	out := buf.String()
	assert.Contains(t, out, `"user_ids":["u1"]`)
	assert.Contains(t, out, "registration promoted from waitlist")
}
