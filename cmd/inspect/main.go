// Command inspect dumps a chat's persisted event sequence from a journal
// directory, one JSON event per line.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"chatledger/pkg/store"
	"chatledger/pkg/types"
)

func main() {
	var (
		dbPath    string
		chat      string
		thread    uint
		hasThread bool
		from      uint
		listChats bool
	)
	flag.StringVar(&dbPath, "db", "", "journal database path")
	flag.StringVar(&chat, "chat", "", "chat id to dump")
	flag.UintVar(&thread, "thread", 0, "thread root message index (omit for the main ledger)")
	flag.UintVar(&from, "from", 0, "first event index to print")
	flag.BoolVar(&listChats, "list", false, "list persisted chats instead of dumping events")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "thread" {
			hasThread = true
		}
	})

	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}
	if err := store.Open(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if listChats {
		metas, err := store.ListChats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list chats: %v\n", err)
			os.Exit(1)
		}
		for _, m := range metas {
			fmt.Printf("%s\t%s\tcreated=%d\n", m.ID, m.Scope, m.CreatedAt)
		}
		return
	}

	if chat == "" {
		fmt.Fprintln(os.Stderr, "--chat required (or --list)")
		os.Exit(2)
	}

	var root *types.MessageIndex
	if hasThread {
		idx := types.MessageIndex(thread)
		root = &idx
	}
	events, err := store.LoadEvents(types.ChatID(chat), root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load events: %v\n", err)
		os.Exit(1)
	}
	for _, ev := range events {
		if uint(ev.Index) < from {
			continue
		}
		line, err := json.Marshal(ev)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal event %d: %v\n", ev.Index, err)
			os.Exit(1)
		}
		fmt.Println(string(line))
	}
}
