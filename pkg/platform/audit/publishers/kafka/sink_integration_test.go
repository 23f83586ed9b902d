//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"amlguard/internal/platform/config"
	platformkafka "amlguard/internal/platform/kafka"
	audit "amlguard/pkg/platform/audit"
	"amlguard/pkg/platform/audit/publishers/kafka"
	"amlguard/pkg/testutil/containers"
)

func TestSink_ProducesToRedpanda(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: []string{rp.Broker}, AuditTopic: "audit-it", Partitions: 1, ReplicationFactor: 1}
	producer, err := platformkafka.NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.EnsureTopic(ctx, cfg.AuditTopic))
	// second call must tolerate the existing topic
	require.NoError(t, producer.EnsureTopic(ctx, cfg.AuditTopic))

	sink := kafka.NewSink(producer, cfg.AuditTopic)
	require.NoError(t, sink.Append(ctx, audit.Event{
		Action:       string(audit.EventIPBlocked),
		ResourceType: "ip_entry",
		ResourceID:   "ip-1",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(cfg.AuditTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)
	require.Equal(t, "ip_entry:ip-1", string(records[0].Key))
}
