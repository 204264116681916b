package groupshandlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	groupsservice "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/application"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
	groupsevents "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/events"
	"github.com/Black-And-White-Club/delegate-dashboard/pkg/wcif"
)

func newHandlers(svc *FakeGroupsService) Handlers {
	return NewGroupsHandlers(
		svc,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		noop.NewTracerProvider().Tracer("test"),
	)
}

func TestHandleGenerateRequested(t *testing.T) {
	runID := uuid.New()

	tests := []struct {
		name         string
		setupService func(*FakeGroupsService)
		payload      *groupsevents.GenerateRequestedPayloadV1
		wantTopic    string
		wantErr      bool
		wantTrace    []string
	}{
		{
			name: "generated",
			setupService: func(f *FakeGroupsService) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, req groupsservice.GenerateRequest) (*groupsservice.GenerationResult, error) {
					assert.Equal(t, groupsservice.TriggerEvent, req.Trigger)
					assert.Equal(t, int64(3), req.ExpectedVersion)
					return &groupsservice.GenerationResult{
						RunID:         runID,
						CompetitionID: req.CompetitionID,
						RoundCode:     req.RoundCode,
						Version:       4,
						Stats:         generators.MergeStats{Added: 12},
						Persisted:     true,
					}, nil
				}
			},
			payload:   &groupsevents.GenerateRequestedPayloadV1{CompetitionID: "Fixture2024", RoundCode: "333-r1", ExpectedVersion: 3},
			wantTopic: groupsevents.GeneratedV1,
			wantTrace: []string{"GenerateAssignments"},
		},
		{
			name: "domain failure is published",
			setupService: func(f *FakeGroupsService) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, req groupsservice.GenerateRequest) (*groupsservice.GenerationResult, error) {
					return nil, fmt.Errorf("%w: %w", groupsservice.ErrCannotGenerate, generators.ErrNoGroups)
				}
			},
			payload:   &groupsevents.GenerateRequestedPayloadV1{CompetitionID: "Fixture2024", RoundCode: "333-r1"},
			wantTopic: groupsevents.GenerationFailedV1,
			wantTrace: []string{"GenerateAssignments"},
		},
		{
			name: "infrastructure error is retried",
			setupService: func(f *FakeGroupsService) {
				f.GenerateAssignmentsFunc = func(ctx context.Context, req groupsservice.GenerateRequest) (*groupsservice.GenerationResult, error) {
					return nil, errors.New("database unavailable")
				}
			},
			payload:   &groupsevents.GenerateRequestedPayloadV1{CompetitionID: "Fixture2024", RoundCode: "333-r1"},
			wantErr:   true,
			wantTrace: []string{"GenerateAssignments"},
		},
		{
			name:         "incomplete request is dropped",
			setupService: func(f *FakeGroupsService) {},
			payload:      &groupsevents.GenerateRequestedPayloadV1{CompetitionID: "Fixture2024"},
			wantTrace:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeGroupsService()
			tt.setupService(svc)

			results, err := newHandlers(svc).HandleGenerateRequested(context.Background(), tt.payload)
			assert.Equal(t, tt.wantTrace, svc.Trace())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantTopic == "" {
				assert.Empty(t, results)
				return
			}
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantTopic, results[0].Topic)
		})
	}
}

func TestHandleGenerateRequestedPayloads(t *testing.T) {
	runID := uuid.New()
	svc := NewFakeGroupsService()
	svc.GenerateAssignmentsFunc = func(ctx context.Context, req groupsservice.GenerateRequest) (*groupsservice.GenerationResult, error) {
		return &groupsservice.GenerationResult{
			RunID:         runID,
			CompetitionID: req.CompetitionID,
			RoundCode:     req.RoundCode,
			Version:       4,
			Stats:         generators.MergeStats{Added: 12, Replaced: 1},
		}, nil
	}

	results, err := newHandlers(svc).HandleGenerateRequested(context.Background(), &groupsevents.GenerateRequestedPayloadV1{
		CompetitionID: "Fixture2024",
		RoundCode:     "333-r1",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	payload, ok := results[0].Payload.(*groupsevents.GeneratedPayloadV1)
	require.True(t, ok, "payload should be GeneratedPayloadV1")
	assert.Equal(t, runID, payload.RunID)
	assert.Equal(t, int64(4), payload.Version)
	assert.Equal(t, 12, payload.Stats.Added)
	assert.Equal(t, 1, payload.Stats.Replaced)
}

func TestHandleMaterializeRequested(t *testing.T) {
	tests := []struct {
		name         string
		setupService func(*FakeGroupsService)
		wantTopic    string
		wantIDs      []int
		wantErr      bool
	}{
		{
			name: "materialized",
			setupService: func(f *FakeGroupsService) {
				f.MaterializeGroupsFunc = func(ctx context.Context, id, roundCode string) (*groupsservice.MaterializeResult, error) {
					return &groupsservice.MaterializeResult{
						CompetitionID: id,
						RoundCode:     roundCode,
						Version:       2,
						Groups: []groupconfig.Materialized{
							{RoundActivityID: 1, RoomID: 1, Groups: []wcif.Activity{{ID: 6}, {ID: 7}}},
							{RoundActivityID: 5, RoomID: 2, Groups: []wcif.Activity{{ID: 8}}},
						},
					}, nil
				}
			},
			wantTopic: groupsevents.MaterializedV1,
			wantIDs:   []int{6, 7, 8},
		},
		{
			name: "groups already exist",
			setupService: func(f *FakeGroupsService) {
				f.MaterializeGroupsFunc = func(ctx context.Context, id, roundCode string) (*groupsservice.MaterializeResult, error) {
					return nil, fmt.Errorf("%w: %s", groupsservice.ErrGroupsAlreadyExist, roundCode)
				}
			},
			wantTopic: groupsevents.MaterializeFailedV1,
		},
		{
			name: "infrastructure error",
			setupService: func(f *FakeGroupsService) {
				f.MaterializeGroupsFunc = func(ctx context.Context, id, roundCode string) (*groupsservice.MaterializeResult, error) {
					return nil, errors.New("connection reset")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeGroupsService()
			tt.setupService(svc)

			results, err := newHandlers(svc).HandleMaterializeRequested(context.Background(), &groupsevents.MaterializeRequestedPayloadV1{
				CompetitionID: "Fixture2024",
				RoundCode:     "333-r1",
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantTopic, results[0].Topic)
			if tt.wantIDs != nil {
				payload, ok := results[0].Payload.(*groupsevents.MaterializedPayloadV1)
				require.True(t, ok)
				assert.Equal(t, tt.wantIDs, payload.GroupIDs)
			}
		})
	}
}
