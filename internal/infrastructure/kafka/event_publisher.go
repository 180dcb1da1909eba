// Package kafka publishes planning lifecycle events for downstream
// consumers (dispatch boards, analytics).
package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roouty-platform/dynamic-engine/internal/domain"
	pkgkafka "github.com/roouty-platform/dynamic-engine/pkg/kafka"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
)

const (
	eventSource      = "dynamic-engine"
	planCreatedTopic = "roouty.plans.created"
	planCreatedType  = "plan.created"
)

// PlanCreatedEvent summarizes a plan delivered to a caller. Task lists
// stay out of the event; consumers needing them read the API response.
type PlanCreatedEvent struct {
	CurrentStatus domain.CurrentStatus `json:"current_status"`
	WorkCount     int                  `json:"work_count"`
	VehicleCount  int                  `json:"vehicle_count"`
	Swap12Count   int                  `json:"swap_1_2_count"`
	Swap23Count   int                  `json:"swap_2_3_count"`
	Version       string               `json:"version"`
}

// EventPublisher emits planning events. Publishing is best effort and
// never fails a request.
type EventPublisher struct {
	producer *pkgkafka.Producer
	log      *logging.Logger
}

func NewEventPublisher(producer *pkgkafka.Producer, log *logging.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		log:      log.WithComponent("event_publisher"),
	}
}

// PublishPlanCreated emits a plan.created event
func (p *EventPublisher) PublishPlanCreated(ctx context.Context, req *domain.Request, resp *domain.Response) {
	if p == nil || p.producer == nil {
		return
	}

	swaps := func(manifests []domain.VehicleSwaps) int {
		count := 0
		for _, m := range manifests {
			count += len(m.Down)
		}
		return count
	}

	event := &pkgkafka.Event{
		ID:     uuid.New().String(),
		Type:   planCreatedType,
		Source: eventSource,
		Time:   time.Now().UTC(),
		Data: PlanCreatedEvent{
			CurrentStatus: req.CurrentStatus,
			WorkCount:     len(req.Works),
			VehicleCount:  len(req.Vehicles),
			Swap12Count:   swaps(resp.Swap12),
			Swap23Count:   swaps(resp.Swap23),
			Version:       resp.V,
		},
	}

	if err := p.producer.PublishEvent(ctx, planCreatedTopic, event); err != nil {
		p.log.WithError(err).Warn("plan event publish failed")
	}
}

// Close releases the underlying producer
func (p *EventPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
