package main

import (
	"fmt"
	"io"
	"sort"
)

// commandDoc documents one wire verb for the `keyz-cli commands` subcommand.
type commandDoc struct {
	grammar string
	summary string
}

var commandDocs = map[string]commandDoc{
	"SET": {
		grammar: "SET <key> <value...> [EX <seconds>]",
		summary: "Store value under key, replacing any prior entry and TTL. An optional trailing EX sets a time-to-live in whole seconds.",
	},
	"GET": {
		grammar: "GET <key>",
		summary: "Return the stored value, or null if the key is absent or expired.",
	},
	"DEL": {
		grammar: "DEL <key>",
		summary: "Remove key and return its name, or null if it was already absent or expired.",
	},
	"EXIN": {
		grammar: "EXIN <key>",
		summary: "Return the remaining time-to-live in seconds, or null if the key is absent, expired, or has no TTL.",
	},
	"CLOSE": {
		grammar: "CLOSE",
		summary: "Ask the server to acknowledge and close the current connection.",
	},
}

func printCommandDocs(w io.Writer) {
	names := make([]string, 0, len(commandDocs))
	for name := range commandDocs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		doc := commandDocs[name]
		fmt.Fprintf(w, "%s\n  %s\n\n", doc.grammar, doc.summary)
	}
}
