package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "wachtrij/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "state":
			stateCmd(os.Args[2:])
			return
		case "settings":
			settingsCmd(os.Args[2:])
			return
		case "reset":
			resetCmd(os.Args[2:])
			return
		}
	}
	feedsCmd(os.Args[1:])
}

// feedsCmd lists the journal files and how many feeds each holds.
func feedsCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.ListJournalFiles(filepath.Join(*dataDir, "feeds"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, path := range files {
		var n int
		var last int64
		err := persistlog.ReadFeeds(path, func(e persistlog.FeedEntry) error {
			n++
			last = e.ReceivedAt
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		fmt.Printf("%s feeds=%d last_received=%d\n", filepath.Base(path), n, last)
	}
}
