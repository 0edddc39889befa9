//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"wrkledger/pkg/domain"
	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/testutil/containers"
)

func TestKafkaSinkDeliversJournalEntries(t *testing.T) {
	ctx := context.Background()
	kc := containers.NewKafkaContainer(t)

	const topic = "wrkledger.journal.test"
	sink, err := New(ctx, []string{kc.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	from, err := domain.ParseAddress("0x1a5b8a59c528458a640d7018c1e806dfb96cbada")
	require.NoError(t, err)
	to, err := domain.ParseAddress("0x14723a09acff6d2a60dcdf7aa4aff308fddc160c")
	require.NoError(t, err)

	entry := journal.Transfer(from, to, 99)
	entry.ID = "entry-1"
	entry.Timestamp = time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, sink.Deliver(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(kc.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, []byte(from.String()), records[0].Key, "stream is keyed by the debited account")

	var got journal.Entry
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, journal.KindTransfer, got.Kind)
	assert.Equal(t, from, got.From)
	assert.Equal(t, to, got.To)
	assert.Equal(t, uint64(99), got.Amount)
}
