package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"amlguard/pkg/domain"
	audit "amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/audit/store/memory"
	"amlguard/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		ActorID: "officer-1",
		Action:  string(audit.EventEntityRegistered),
	})
	require.NoError(t, err)

	events, err := store.ListByActor(context.Background(), "officer-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventEntityRegistered), events[0].Action)
	assert.Equal(t, audit.CategoryEntityManagement, events[0].Category)
	assert.Equal(t, audit.SeverityInfo, events[0].Severity)
	assert.Equal(t, audit.OutcomeSuccess, events[0].Outcome)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			ActorID: "officer-1",
			Action:  string(audit.EventIPBlocked),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DoesNotPanic(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAlertRaised)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_EmitAfterCloseReturnsErrClosed(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{name: "async", opts: []Option{WithAsyncBuffer(4)}},
		{name: "sync"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewInMemoryStore()
			pub := NewPublisher(store, tc.opts...)
			pub.Close()
			pub.Close()

			var err error
			require.NotPanics(t, func() {
				err = pub.Emit(context.Background(), audit.Event{Action: string(audit.EventIPBlocked)})
			})
			assert.ErrorIs(t, err, ErrClosed)

			events, err := store.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestPublisher_ConcurrentEmitAndClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(8))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAlertRaised)})
			if err != nil && !errors.Is(err, ErrBufferFull) {
				assert.ErrorIs(t, err, ErrClosed)
			}
		}()
	}
	require.NotPanics(t, pub.Close)
	wg.Wait()
}

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.8", "curl/8.0")
	ctx = requestcontext.WithActor(ctx, domain.Actor{ID: "u-1", Name: "Ana Ruiz", Role: domain.RoleSupervisor})

	require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventEntityRevoked)}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, fixed, got.Timestamp)
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, "10.0.0.8", got.IP)
	assert.Equal(t, "curl/8.0", got.UserAgent)
	assert.Equal(t, "u-1", got.ActorID)
	assert.Equal(t, "Ana Ruiz", got.ActorName)
	assert.Equal(t, "supervisor", got.ActorRole)
	assert.Equal(t, audit.SeverityCritical, got.Severity)
}

func TestPublisher_PreservesExplicitFields(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithActor(context.Background(), domain.Actor{ID: "u-1"})
	err := pub.Emit(ctx, audit.Event{
		Timestamp: custom,
		ActorID:   domain.SystemActor.ID,
		Action:    string(audit.EventEntityExpired),
		Severity:  audit.SeverityCritical,
	})
	require.NoError(t, err)

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, custom, events[0].Timestamp)
	assert.Equal(t, "system", events[0].ActorID)
	assert.Equal(t, audit.SeverityCritical, events[0].Severity)
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("sink down")
}

func TestPublisher_FansOutToEverySink(t *testing.T) {
	primary := memory.NewInMemoryStore()
	secondary := memory.NewInMemoryStore()
	pub := NewPublisher(primary, WithSink(secondary), WithSink(failingStore{}))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventProfileUpdated)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")

	a, _ := primary.ListAll(context.Background())
	b, _ := secondary.ListAll(context.Background())
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestAuditEvent_CategoryDefaults(t *testing.T) {
	assert.Equal(t, audit.CategoryConfiguration, audit.EventFirewallRuleCreated.Category())
	assert.Equal(t, audit.CategoryDataAccess, audit.AuditEvent("something_else").Category())
	assert.Equal(t, audit.SeverityInfo, audit.AuditEvent("something_else").Severity())
}
