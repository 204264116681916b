package groupsrouter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	groupsevents "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/events"
	groupshandlers "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/handlers"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/eventbus"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/handlerwrapper"
	"github.com/Black-And-White-Club/delegate-dashboard/internal/testutils"
)

type fakeHandlers struct {
	generated chan *groupsevents.GenerateRequestedPayloadV1
}

func (f *fakeHandlers) HandleGenerateRequested(ctx context.Context, p *groupsevents.GenerateRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	f.generated <- p
	return []handlerwrapper.Result{{
		Topic:   groupsevents.GeneratedV1,
		Payload: &groupsevents.GeneratedPayloadV1{CompetitionID: p.CompetitionID, RoundCode: p.RoundCode, Version: 2},
	}}, nil
}

func (f *fakeHandlers) HandleMaterializeRequested(ctx context.Context, p *groupsevents.MaterializeRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	return nil, nil
}

var _ groupshandlers.Handlers = (*fakeHandlers)(nil)

func TestGroupsRouterRoutesResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wmLogger := watermill.NewSlogLogger(logger)
	bus := eventbus.NewMemoryEventBus(wmLogger)
	defer bus.Close()

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	require.NoError(t, err)

	handlers := &fakeHandlers{generated: make(chan *groupsevents.GenerateRequestedPayloadV1, 1)}
	groupsRouter := NewGroupsRouter(logger, router, bus, bus, noop.NewTracerProvider().Tracer("test"), prometheus.NewRegistry())
	require.NoError(t, groupsRouter.Configure(ctx, handlers))

	out, err := bus.Subscribe(ctx, groupsevents.GeneratedV1)
	require.NoError(t, err)

	go func() { _ = router.Run(ctx) }()
	<-router.Running()
	defer groupsRouter.Close()

	body, err := json.Marshal(groupsevents.GenerateRequestedPayloadV1{CompetitionID: "Fixture2024", RoundCode: "333-r1"})
	require.NoError(t, err)
	in := message.NewMessage(watermill.NewUUID(), body)
	in.Metadata.Set(handlerwrapper.CorrelationIDKey, "corr-9")
	require.NoError(t, bus.Publish(groupsevents.GenerateRequestedV1, in))

	select {
	case p := <-handlers.generated:
		assert.Equal(t, "333-r1", p.RoundCode)
	case <-ctx.Done():
		t.Fatal("handler was not called")
	}

	select {
	case msg := <-out:
		msg.Ack()
		var payload groupsevents.GeneratedPayloadV1
		testutils.DecodePayload(t, msg, &payload)
		assert.Equal(t, "Fixture2024", payload.CompetitionID)
		assert.Equal(t, int64(2), payload.Version)
		assert.Equal(t, "corr-9", msg.Metadata.Get(handlerwrapper.CorrelationIDKey))
	case <-ctx.Done():
		t.Fatal("result was not published")
	}
}
