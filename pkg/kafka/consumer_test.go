package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

func recordKey(topic string, partition int32, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}

func keysOf(records []*kgo.Record) []string {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, recordKey(r.Topic, r.Partition, r.Offset))
	}
	sort.Strings(keys)
	return keys
}

func TestProcessRecordsBlocksPartitionAfterFailure(t *testing.T) {
	consumer := &Consumer{
		logger:   logrus.New(),
		handlers: make(map[string]Handler),
	}

	var handled []string
	consumer.handlers["engagement_events"] = func(_ context.Context, msg Message) error {
		handled = append(handled, recordKey(msg.Topic, msg.Partition, msg.Offset))
		if msg.Partition == 0 && msg.Offset == 1 {
			return errors.New("persist failed")
		}
		return nil
	}

	records := []*kgo.Record{
		{Topic: "engagement_events", Partition: 0, Offset: 0},
		{Topic: "engagement_events", Partition: 0, Offset: 1},
		{Topic: "engagement_events", Partition: 0, Offset: 2},
		{Topic: "engagement_events", Partition: 1, Offset: 0},
		{Topic: "engagement_events", Partition: 1, Offset: 1},
	}

	commits := consumer.processRecords(context.Background(), records)

	// Offset 2 on partition 0 must not be handled once offset 1 failed,
	// otherwise a restart would skip the failed event.
	sort.Strings(handled)
	wantHandled := []string{
		recordKey("engagement_events", 0, 0),
		recordKey("engagement_events", 0, 1),
		recordKey("engagement_events", 1, 0),
		recordKey("engagement_events", 1, 1),
	}
	if len(handled) != len(wantHandled) {
		t.Fatalf("handled = %v, want %v", handled, wantHandled)
	}
	for i := range handled {
		if handled[i] != wantHandled[i] {
			t.Fatalf("handled = %v, want %v", handled, wantHandled)
		}
	}

	// Partition 0 commits only up to the last success before the failure.
	gotCommits := keysOf(commits)
	wantCommits := []string{
		recordKey("engagement_events", 0, 0),
		recordKey("engagement_events", 1, 1),
	}
	if len(gotCommits) != len(wantCommits) {
		t.Fatalf("commits = %v, want %v", gotCommits, wantCommits)
	}
	for i := range gotCommits {
		if gotCommits[i] != wantCommits[i] {
			t.Fatalf("commits = %v, want %v", gotCommits, wantCommits)
		}
	}
}

func TestProcessRecordsCommitsUnhandledTopics(t *testing.T) {
	consumer := &Consumer{
		logger:   logrus.New(),
		handlers: make(map[string]Handler),
	}

	records := []*kgo.Record{
		{Topic: "unrelated", Partition: 0, Offset: 4},
		{Topic: "unrelated", Partition: 0, Offset: 5},
	}

	commits := consumer.processRecords(context.Background(), records)

	got := keysOf(commits)
	want := []string{recordKey("unrelated", 0, 5)}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("commits = %v, want %v", got, want)
	}
}
