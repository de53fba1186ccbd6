package server

import (
	"net"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/viktor111/keyz/internal/config"
	"github.com/viktor111/keyz/internal/protocol"
	"github.com/viktor111/keyz/internal/store"
)

// connState is the per-connection state machine's two states.
type connState int

const (
	stateReading connState = iota
	stateClosed
)

const closingConnectionReply = "Closing connection"

// ServeConn runs one connection's read → dispatch → write loop until the
// peer disconnects, goes idle past the configured timeout, sends the close
// command, or an unrecoverable I/O error occurs. It owns conn and closes it
// on return.
func ServeConn(conn net.Conn, st *store.Store, cfg config.ProtocolConfig, log *zap.Logger) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	state := stateReading

	for state == stateReading {
		if err := conn.SetReadDeadline(time.Now().Add(cfg.IdleTimeout())); err != nil {
			log.Warn("failed to set read deadline", zap.String("remote", remote), zap.Error(err))
			return
		}

		payload, err := protocol.ReadFrame(conn, cfg.MaxMessageBytes)
		if err != nil {
			state = handleReadError(conn, cfg, log, remote, err)
			continue
		}

		state = handlePayload(conn, st, cfg, log, remote, payload)
	}
}

func handleReadError(conn net.Conn, cfg config.ProtocolConfig, log *zap.Logger, remote string, err error) connState {
	kind, _ := protocol.KindOf(err)

	switch kind {
	case protocol.ClientTimeout:
		_ = protocol.WriteFrame(conn, []byte(cfg.TimeoutResponse), cfg.MaxMessageBytes)
		return stateClosed
	case protocol.ClientDisconnected, protocol.UnexpectedEOF:
		return stateClosed
	default:
		log.Warn("connection read failed", zap.String("remote", remote), zap.Error(err))
		return stateClosed
	}
}

func handlePayload(conn net.Conn, st *store.Store, cfg config.ProtocolConfig, log *zap.Logger, remote string, payload []byte) connState {
	if !utf8.Valid(payload) {
		log.Warn("non-UTF-8 payload", zap.String("remote", remote))
		return stateClosed
	}

	text := string(payload)
	if text == cfg.CloseCommand {
		_ = protocol.WriteFrame(conn, []byte(closingConnectionReply), cfg.MaxMessageBytes)
		return stateClosed
	}

	reply := dispatch(text, st, cfg)
	if err := protocol.WriteFrame(conn, reply, cfg.MaxMessageBytes); err != nil {
		log.Warn("connection write failed", zap.String("remote", remote), zap.Error(err))
		return stateClosed
	}
	return stateReading
}

// dispatch parses and executes one command, converting grammar violations
// into the configured invalid-command reply.
func dispatch(payload string, st *store.Store, cfg config.ProtocolConfig) []byte {
	cmd, err := protocol.Parse(payload)
	if err != nil {
		return []byte(cfg.InvalidCommandResponse)
	}

	reply := handle(cmd, st)
	if reply == nil {
		return []byte(cfg.InvalidCommandResponse)
	}
	return reply
}
