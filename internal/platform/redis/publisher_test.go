package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/events"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	message []byte
}

type fakePublisher struct {
	err  error
	sent []published
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *goredis.IntCmd {
	f.sent = append(f.sent, published{channel: channel, message: message.([]byte)})
	return goredis.NewIntResult(1, f.err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func statusEvent(t *testing.T, payload events.CourseStatusPayload) *events.Event {
	t.Helper()
	e, err := events.NewEvent(events.TypeCourseStatusChanged, payload)
	require.NoError(t, err)
	return e
}

func TestStatusPublisher_PublishesStatusChanges(t *testing.T) {
	t.Parallel()

	fake := &fakePublisher{}
	p := newStatusPublisher(fake, "course-status", discardLogger())

	payload := events.CourseStatusPayload{
		CourseID:      uuid.New(),
		CreatorID:     uuid.New(),
		Status:        "FAILED",
		FailureReason: "generation_timeout",
		OccurredAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.HandleEvent(context.Background(), statusEvent(t, payload)))

	require.Len(t, fake.sent, 1)
	assert.Equal(t, "course-status", fake.sent[0].channel)

	var got events.CourseStatusPayload
	require.NoError(t, json.Unmarshal(fake.sent[0].message, &got))
	assert.Equal(t, payload, got)
}

func TestStatusPublisher_IgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	fake := &fakePublisher{}
	p := newStatusPublisher(fake, "course-status", discardLogger())

	e, err := events.NewEvent(events.TypeCourseGenerationRequested, events.CourseGenerationPayload{CourseID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, p.HandleEvent(context.Background(), e))
	require.NoError(t, p.HandleEvent(context.Background(), nil))
	assert.Empty(t, fake.sent)
}

func TestStatusPublisher_PublishError(t *testing.T) {
	t.Parallel()

	errDown := errors.New("connection refused")
	p := newStatusPublisher(&fakePublisher{err: errDown}, "course-status", discardLogger())

	err := p.HandleEvent(context.Background(), statusEvent(t, events.CourseStatusPayload{CourseID: uuid.New()}))
	assert.ErrorIs(t, err, errDown)
}

func TestStatusPublisher_BadPayload(t *testing.T) {
	t.Parallel()

	fake := &fakePublisher{}
	p := newStatusPublisher(fake, "course-status", discardLogger())

	e := &events.Event{ID: uuid.New(), Type: events.TypeCourseStatusChanged, Payload: json.RawMessage(`"nope"`)}
	assert.Error(t, p.HandleEvent(context.Background(), e))
	assert.Empty(t, fake.sent)
}

func TestNewStatusPublisher_RequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := NewStatusPublisher(context.Background(), config.RedisConfig{}, discardLogger())
	assert.Error(t, err)

	var nilPublisher *StatusPublisher
	assert.NoError(t, nilPublisher.Close())
}
