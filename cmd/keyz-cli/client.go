package main

import (
	"fmt"
	"net"
	"time"

	"github.com/viktor111/keyz/internal/protocol"
)

// Client is a thin synchronous wrapper over the length-prefixed wire
// protocol, used by every subcommand that needs to talk to a running keyz
// server. It intentionally imports internal/protocol directly rather than
// re-encoding frames itself, so the CLI can never drift from the server's
// wire format.
type Client struct {
	addr            string
	connectTimeout  time.Duration
	responseTimeout time.Duration
	maxMessageBytes uint32
}

func NewClient(addr string, connectTimeout, responseTimeout time.Duration, maxMessageBytes uint32) *Client {
	return &Client{
		addr:            addr,
		connectTimeout:  connectTimeout,
		responseTimeout: responseTimeout,
		maxMessageBytes: maxMessageBytes,
	}
}

// Send opens a fresh connection, writes one command frame, reads one reply
// frame, and closes the connection. The protocol is fully request/response
// and stateless across frames (aside from CLOSE), so a short-lived
// connection per command keeps the CLI simple at negligible cost.
func (c *Client) Send(command string) (string, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.connectTimeout)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	defer conn.Close()

	return c.sendOnConn(conn, command)
}

func (c *Client) sendOnConn(conn net.Conn, command string) (string, error) {
	if err := protocol.WriteFrame(conn, []byte(command), c.maxMessageBytes); err != nil {
		return "", fmt.Errorf("writing command: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.responseTimeout)); err != nil {
		return "", fmt.Errorf("setting read deadline: %w", err)
	}

	reply, err := protocol.ReadFrame(conn, c.maxMessageBytes)
	if err != nil {
		return "", fmt.Errorf("reading reply: %w", err)
	}
	return string(reply), nil
}

// Dial opens one connection for a caller that wants to issue several
// commands over it, such as the interactive REPL.
func (c *Client) Dial() (net.Conn, error) {
	return net.DialTimeout("tcp", c.addr, c.connectTimeout)
}

func (c *Client) SendOnConn(conn net.Conn, command string) (string, error) {
	return c.sendOnConn(conn, command)
}
