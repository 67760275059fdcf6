package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wachtrij/internal/protocol"
)

func TestOrderJournal_RoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	j := NewOrderJournal(dir)

	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	j.w.now = func() time.Time { return now }

	rec := protocol.OrderRecord{ID: "1", UnitID: "sword", Count: 10, CreatedAt: 1000, ToBeCompletedAt: 1100}
	if err := j.WriteFeed(FeedEntry{BatchID: "a", ReceivedAt: 1, Orders: []protocol.OrderRecord{rec}}); err != nil {
		t.Fatalf("WriteFeed: %v", err)
	}
	if err := j.WriteFeed(FeedEntry{BatchID: "b", ReceivedAt: 2}); err != nil {
		t.Fatalf("WriteFeed: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := j.WriteFeed(FeedEntry{BatchID: "c", ReceivedAt: 3}); err != nil {
		t.Fatalf("WriteFeed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListJournalFiles(filepath.Join(dir, "feeds"))
	if err != nil {
		t.Fatalf("ListJournalFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}
	if filepath.Base(files[0]) != "orders-2026-03-01-10.jsonl.zst" {
		t.Fatalf("unexpected first file %s", files[0])
	}

	var ids []string
	for _, f := range files {
		if err := ReadFeeds(f, func(e FeedEntry) error {
			ids = append(ids, e.BatchID)
			if e.BatchID == "a" && (len(e.Orders) != 1 || e.Orders[0] != rec) {
				t.Fatalf("orders not preserved: %+v", e.Orders)
			}
			return nil
		}); err != nil {
			t.Fatalf("ReadFeeds: %v", err)
		}
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("ids=%v", ids)
	}
}

func TestReadFeeds_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	j := NewOrderJournal(dir)
	for i := 0; i < 3; i++ {
		if err := j.WriteFeed(FeedEntry{BatchID: "x"}); err != nil {
			t.Fatalf("WriteFeed: %v", err)
		}
	}
	_ = j.Close()

	files, _ := ListJournalFiles(filepath.Join(dir, "feeds"))
	stop := errors.New("stop")
	n := 0
	err := ReadFeeds(files[0], func(FeedEntry) error { n++; return stop })
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}
