package security

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolgate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSink(t *testing.T, bus domain.EventBus) (*FileAuditSink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileAuditSink(path, bus, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink, path
}

func readLines(t *testing.T, path string) []domain.AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []domain.AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e domain.AuditEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestEmit_WritesJSONLines(t *testing.T) {
	sink, path := newTestSink(t, nil)
	ctx := context.Background()

	success := true
	sink.Emit(ctx, domain.AuditEvent{
		Timestamp:     time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Type:          domain.AuditRequestStart,
		CorrelationID: "01ARZ3",
		Tool:          "create_post",
		CallerID:      5,
	})
	sink.Emit(ctx, domain.AuditEvent{
		Type:          domain.AuditRequestEnd,
		CorrelationID: "01ARZ3",
		Tool:          "create_post",
		CallerID:      5,
		Success:       &success,
	})

	events := readLines(t, path)
	require.Len(t, events, 2)

	assert.Equal(t, domain.AuditRequestStart, events[0].Type)
	assert.Equal(t, "01ARZ3", events[0].CorrelationID)
	assert.Equal(t, int64(5), events[0].CallerID)

	assert.Equal(t, domain.AuditRequestEnd, events[1].Type)
	require.NotNil(t, events[1].Success)
	assert.True(t, *events[1].Success)
	assert.False(t, events[1].Timestamp.IsZero(), "zero timestamps are filled in")
}

func TestEmit_TimestampSerializedAsUTC(t *testing.T) {
	sink, path := newTestSink(t, nil)

	loc := time.FixedZone("PST", -8*3600)
	sink.Emit(context.Background(), domain.AuditEvent{
		Timestamp: time.Date(2026, 8, 24, 4, 0, 0, 0, loc).UTC(),
		Type:      domain.AuditRequestStart,
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2026-08-24T12:00:00Z"`)
}

type collectBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *collectBus) Publish(_ context.Context, e domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}
func (b *collectBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *collectBus) SubscribeAll(domain.EventHandler) func()                { return func() {} }

func TestEmit_MirrorsToBus(t *testing.T) {
	bus := &collectBus{}
	sink, _ := newTestSink(t, bus)

	sink.Emit(context.Background(), domain.AuditEvent{
		Type: domain.AuditRateLimited,
		Tool: "create_post",
	})

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.events, 1)
	assert.Equal(t, domain.EventAudit, bus.events[0].Type)

	var echoed domain.AuditEvent
	require.NoError(t, json.Unmarshal(bus.events[0].Payload, &echoed))
	assert.Equal(t, domain.AuditRateLimited, echoed.Type)
}

func TestEnforceRetention_MaxAge(t *testing.T) {
	sink, path := newTestSink(t, nil)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()

	sink.Emit(ctx, domain.AuditEvent{Timestamp: old, Type: domain.AuditRequestStart, Tool: "old"})
	sink.Emit(ctx, domain.AuditEvent{Timestamp: recent, Type: domain.AuditRequestStart, Tool: "new"})

	sink.SetRetention(RetentionPolicy{MaxAge: 24 * time.Hour})
	removed, err := sink.EnforceRetention(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	events := readLines(t, path)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].Tool)
}

func TestEnforceRetention_MaxSizeTrimsOldest(t *testing.T) {
	sink, path := newTestSink(t, nil)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		sink.Emit(ctx, domain.AuditEvent{
			Timestamp: time.Now().UTC(),
			Type:      domain.AuditRequestStart,
			Tool:      "padding_tool_name_to_grow_the_line",
			CallerID:  int64(i + 1),
		})
	}

	info, err := os.Stat(path)
	require.NoError(t, err)

	sink.SetRetention(RetentionPolicy{MaxSize: info.Size() / 2})
	removed, err := sink.EnforceRetention(ctx)
	require.NoError(t, err)
	assert.Greater(t, removed, 0)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, after.Size(), info.Size()/2)

	// The newest entries survive.
	events := readLines(t, path)
	require.NotEmpty(t, events)
	assert.Equal(t, int64(50), events[len(events)-1].CallerID)
}

func TestEnforceRetention_NoPolicyIsNoop(t *testing.T) {
	sink, _ := newTestSink(t, nil)

	removed, err := sink.EnforceRetention(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestEmit_AppendsAfterRetention(t *testing.T) {
	sink, path := newTestSink(t, nil)
	ctx := context.Background()

	sink.Emit(ctx, domain.AuditEvent{Timestamp: time.Now().UTC(), Type: domain.AuditRequestStart})
	sink.SetRetention(RetentionPolicy{MaxAge: time.Hour})
	_, err := sink.EnforceRetention(ctx)
	require.NoError(t, err)

	// The sink keeps working against the rewritten file.
	sink.Emit(ctx, domain.AuditEvent{Timestamp: time.Now().UTC(), Type: domain.AuditRequestEnd})
	assert.Len(t, readLines(t, path), 2)
}

func TestParseRetentionMaxSize(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"512", 512, false},
		{"10B", 10, false},
		{"4KB", 4 * 1024, false},
		{"100MB", 100 * 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{" 2 MB ", 2 * 1024 * 1024, false},
		{"lots", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseRetentionMaxSize(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
