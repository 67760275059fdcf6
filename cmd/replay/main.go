package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"wachtrij/internal/orders"
	persistlog "wachtrij/internal/persistence/log"
	"wachtrij/internal/queue"
	"wachtrij/internal/render"
	"wachtrij/internal/settings"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory (reads <data>/feeds)")
		at      = flag.Int64("at", 0, "unix time to evaluate the queue at (default: receipt time of the chosen feed)")
		html    = flag.Bool("html", false, "print the rendered panel markup instead of the counts")
	)
	flag.Parse()

	res, err := replay(filepath.Join(*dataDir, "feeds"), *at)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if err := res.print(os.Stdout, *html); err != nil {
		fmt.Fprintln(os.Stderr, "print:", err)
		os.Exit(1)
	}
}

var errNoFeed = errors.New("no journaled feed at or before the requested time")

type result struct {
	Feed    persistlog.FeedEntry
	At      int64
	Snap    queue.Snapshot
	Skipped int
}

// replay picks the newest feed received at or before at (any feed when at is 0) and
// aggregates it as of at.
func replay(dir string, at int64) (result, error) {
	files, err := persistlog.ListJournalFiles(dir)
	if err != nil {
		return result{}, err
	}
	if len(files) == 0 {
		return result{}, fmt.Errorf("no journal files found in %s", dir)
	}

	var (
		best  persistlog.FeedEntry
		found bool
	)
	for _, path := range files {
		err := persistlog.ReadFeeds(path, func(e persistlog.FeedEntry) error {
			if at != 0 && e.ReceivedAt > at {
				return nil
			}
			if !found || e.ReceivedAt >= best.ReceivedAt {
				best, found = e, true
			}
			return nil
		})
		if err != nil {
			return result{}, err
		}
	}
	if !found {
		return result{}, errNoFeed
	}
	if at == 0 {
		at = best.ReceivedAt
	}

	res := result{Feed: best, At: at}
	list := make([]queue.Order, 0, len(best.Orders))
	for _, rec := range best.Orders {
		o, err := queue.NewOrder(rec.ID, queue.UnitType(rec.UnitID), rec.Count, rec.CreatedAt, rec.ToBeCompletedAt)
		if err != nil {
			res.Skipped++
			continue
		}
		list = append(list, o)
	}
	// Load through the same keyed store the server uses so repeated ids collapse identically.
	store := orders.NewMemoryStore()
	store.Replace(list, time.Unix(best.ReceivedAt, 0))
	live, err := store.Orders(context.Background())
	if err != nil {
		return result{}, err
	}
	res.Snap = queue.Aggregate(live, at)
	return res, nil
}

func (r result) print(w io.Writer, asHTML bool) error {
	groups := r.Snap.Groups()
	if asHTML {
		content, err := render.Content(groups, render.Options{})
		if err != nil {
			return err
		}
		panel, err := render.Panel(content, settings.Defaults())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, panel)
		return err
	}

	fmt.Fprintf(w, "feed %s received=%d orders=%d skipped=%d at=%d units=%d\n",
		r.Feed.BatchID, r.Feed.ReceivedAt, len(r.Feed.Orders), r.Skipped, r.At, r.Snap.Total())
	for _, g := range groups {
		fmt.Fprintf(w, "%s\n", g.Title)
		for _, e := range g.Entries {
			fmt.Fprintf(w, "  %-16s %d\n", e.Unit, e.Count)
		}
	}
	return nil
}
