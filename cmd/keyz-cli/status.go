package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// healthProbeKey is a sentinel key unlikely to collide with real data; a
// GET against it always succeeds (with a null reply) on a healthy server,
// so it is used purely to measure reachability and round-trip latency.
const healthProbeKey = "__keyz_cli_health_check"

type statusSnapshot struct {
	Reachable bool    `json:"reachable"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
	Response  string  `json:"response,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func probeStatus(c *Client) statusSnapshot {
	start := time.Now()
	reply, err := c.Send("GET " + healthProbeKey)
	if err != nil {
		return statusSnapshot{Reachable: false, Error: err.Error()}
	}
	return statusSnapshot{
		Reachable: true,
		LatencyMs: float64(time.Since(start)) / float64(time.Millisecond),
		Response:  reply,
	}
}

func printStatus(w io.Writer, snap statusSnapshot, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
		return
	}

	if snap.Reachable {
		fmt.Fprintf(w, "server reachable in %.2f ms; response: %s\n", snap.LatencyMs, snap.Response)
		return
	}
	fmt.Fprintf(w, "server unreachable: %s\n", snap.Error)
}
