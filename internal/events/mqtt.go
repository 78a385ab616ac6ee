package events

import (
	"context"
	"encoding/json"
	"fmt"

	"incapacity-claims/internal/domain"
)

// Publisher is satisfied by common/mqtt.Client.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTMirror republishes status-affecting events on
// <prefix>/claims/<claim_id>/status as retained messages.
type MQTTMirror struct {
	publisher Publisher
	prefix    string
}

func NewMQTTMirror(publisher Publisher, prefix string) *MQTTMirror {
	return &MQTTMirror{publisher: publisher, prefix: prefix}
}

type statusMessage struct {
	ClaimID    int64  `json:"claim_id"`
	Status     int    `json:"status"`
	StatusName string `json:"status_name"`
	ActorID    int64  `json:"actor_id"`
	EventID    string `json:"event_id"`
	OccurredAt string `json:"occurred_at"`
}

func (m *MQTTMirror) HandleEvent(_ context.Context, ev domain.ClaimEvent) error {
	switch ev.Kind {
	case domain.EventCreated, domain.EventReviewUpdated, domain.EventMarkedReviewed,
		domain.EventStatusChanged, domain.EventResubmitted:
	default:
		return nil
	}
	if ev.ClaimID == 0 || !ev.NewStatus.Valid() {
		return nil
	}

	payload, err := json.Marshal(statusMessage{
		ClaimID:    ev.ClaimID,
		Status:     int(ev.NewStatus),
		StatusName: ev.NewStatus.String(),
		ActorID:    ev.ActorID,
		EventID:    ev.EventID,
		OccurredAt: ev.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	return m.publisher.Publish(m.Topic(ev.ClaimID), true, payload)
}

// Topic returns the status topic of a claim.
func (m *MQTTMirror) Topic(claimID int64) string {
	return fmt.Sprintf("%s/claims/%d/status", m.prefix, claimID)
}
