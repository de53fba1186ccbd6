package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/viktor111/keyz/internal/config"
)

// defaultConfigTemplate is written by `keyz-cli config init`. It mirrors the
// built-in defaults in internal/config so a generated file is a valid,
// complete starting point rather than a partial stub.
const defaultConfigTemplate = `[server]
host = "127.0.0.1"
port = 7667

[protocol]
max_message_bytes = 4194304
idle_timeout_secs = 30
close_command = "CLOSE"
timeout_response = "error:timeout"
invalid_command_response = "error:invalid command"

[store]
compression_threshold = 512
cleanup_interval_ms = 250
# default_ttl_secs = 60

[log]
level = "info"
format = "json"
`

func runConfigShow(w io.Writer, explicitPath string, asJSON bool) error {
	cfg, source, err := config.Load(explicitPath)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Source string        `json:"source"`
			Config *config.Config `json:"config"`
		}{Source: source.String(), Config: cfg})
	}

	fmt.Fprintf(w, "source: %s\n", source.String())
	fmt.Fprintf(w, "server.host = %q\n", cfg.Server.Host)
	fmt.Fprintf(w, "server.port = %d\n", cfg.Server.Port)
	fmt.Fprintf(w, "protocol.max_message_bytes = %d\n", cfg.Protocol.MaxMessageBytes)
	fmt.Fprintf(w, "protocol.idle_timeout_secs = %d\n", cfg.Protocol.IdleTimeoutSecs)
	fmt.Fprintf(w, "protocol.close_command = %q\n", cfg.Protocol.CloseCommand)
	fmt.Fprintf(w, "store.compression_threshold = %d\n", cfg.Store.CompressionThreshold)
	fmt.Fprintf(w, "store.cleanup_interval_ms = %d\n", cfg.Store.CleanupIntervalMs)
	if cfg.Store.DefaultTTLSecs != nil {
		fmt.Fprintf(w, "store.default_ttl_secs = %d\n", *cfg.Store.DefaultTTLSecs)
	} else {
		fmt.Fprintln(w, "store.default_ttl_secs = (unset)")
	}
	fmt.Fprintf(w, "log.level = %q\n", cfg.Log.Level)
	fmt.Fprintf(w, "log.format = %q\n", cfg.Log.Format)
	return nil
}

func runConfigInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite (use -force)", path)
		}
	}
	return os.WriteFile(path, []byte(defaultConfigTemplate), 0o644)
}
