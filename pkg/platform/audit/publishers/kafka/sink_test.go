package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "amlguard/pkg/platform/audit"
)

type recordingProducer struct {
	topic string
	key   []byte
	value []byte
}

func (p *recordingProducer) Produce(_ context.Context, topic string, key, value []byte) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestSink_Append(t *testing.T) {
	producer := &recordingProducer{}
	sink := NewSink(producer, "amlguard.audit")

	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	err := sink.Append(context.Background(), audit.Event{
		Timestamp:    ts,
		Action:       string(audit.EventEntitySuspended),
		Category:     audit.CategoryEntityManagement,
		Severity:     audit.SeverityWarning,
		Outcome:      audit.OutcomeSuccess,
		ActorID:      "sup-1",
		ResourceType: "entity",
		ResourceID:   "e-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "amlguard.audit", producer.topic)
	assert.Equal(t, "entity:e-1", string(producer.key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(producer.value, &decoded))
	assert.Equal(t, "entity_suspended", decoded["action"])
	assert.Equal(t, "warning", decoded["severity"])
	assert.Equal(t, "sup-1", decoded["actor_id"])
	assert.NotContains(t, decoded, "ip")
}
