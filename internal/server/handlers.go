package server

import (
	"strconv"
	"time"

	"github.com/viktor111/keyz/internal/protocol"
	"github.com/viktor111/keyz/internal/store"
)

// Canned replies not sourced from configuration — only close_command,
// timeout_response, and invalid_command_response are config-driven; these
// two are fixed wire constants.
const (
	replyOK   = "ok"
	replyNull = "null"
)

// handle dispatches a parsed command to the matching pure handler and
// returns the reply bytes to write back to the client. It never panics on a
// malformed command: Parse already rejected grammar violations one layer up.
func handle(cmd protocol.Command, st *store.Store) []byte {
	switch cmd.Verb {
	case protocol.VerbSet:
		return handleSet(cmd, st)
	case protocol.VerbGet:
		return handleGet(cmd, st)
	case protocol.VerbDel:
		return handleDel(cmd, st)
	case protocol.VerbExin:
		return handleExin(cmd, st)
	default:
		return nil
	}
}

func handleSet(cmd protocol.Command, st *store.Store) []byte {
	var ttl *time.Duration
	if cmd.HasTTL {
		d := time.Duration(cmd.TTL) * time.Second
		ttl = &d
	}

	if err := st.Insert(cmd.Key, cmd.Value, ttl); err != nil {
		return nil
	}
	return []byte(replyOK)
}

func handleGet(cmd protocol.Command, st *store.Store) []byte {
	val, ok, err := st.Get(cmd.Key)
	if err != nil || !ok {
		return []byte(replyNull)
	}
	return val
}

func handleDel(cmd protocol.Command, st *store.Store) []byte {
	if st.Delete(cmd.Key) {
		return []byte(cmd.Key)
	}
	return []byte(replyNull)
}

func handleExin(cmd protocol.Command, st *store.Store) []byte {
	d, status := st.ExpiresIn(cmd.Key)
	if status != store.ExpActive {
		return []byte(replyNull)
	}

	// ceiling division so a key that was just given "EX n" reports n, not
	// n-1, even though a few nanoseconds have already elapsed.
	seconds := int64(d / time.Second)
	if d%time.Second > 0 {
		seconds++
	}
	return []byte(strconv.FormatInt(seconds, 10))
}
