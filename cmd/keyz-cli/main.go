package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/viktor111/keyz/internal/config"
)

const (
	defaultConnectTimeout  = 3 * time.Second
	defaultResponseTimeout = 5 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("keyz-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "path to keyz.toml")
	hostOverride := fs.String("host", "", "override the configured host")
	portOverride := fs.Int("port", 0, "override the configured port")
	connectTimeout := fs.Duration("connect-timeout", defaultConnectTimeout, "connection timeout")
	responseTimeout := fs.Duration("response-timeout", defaultResponseTimeout, "response timeout")
	asJSON := fs.Bool("json", false, "emit JSON where available")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		fs.PrintDefaults()
		return 2
	}

	subcommand, subArgs := rest[0], rest[1:]

	if subcommand == "config" {
		return runConfigSubcommand(subArgs, stdout, stderr, *configPath, *asJSON)
	}
	if subcommand == "commands" {
		printCommandDocs(stdout)
		return 0
	}

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "keyz-cli: loading config: %v\n", err)
		return 1
	}
	if *hostOverride != "" {
		cfg.Server.Host = *hostOverride
	}
	if *portOverride != 0 {
		cfg.Server.Port = *portOverride
	}

	client := NewClient(cfg.Server.Addr(), *connectTimeout, *responseTimeout, cfg.Protocol.MaxMessageBytes)

	switch subcommand {
	case "exec":
		return runExec(client, subArgs, stdout, stderr)
	case "status":
		return runStatus(client, subArgs, stdout, stderr, *asJSON)
	case "interactive":
		if err := runInteractive(client, stdin, stdout); err != nil {
			fmt.Fprintf(stderr, "keyz-cli: %v\n", err)
			return 1
		}
		return 0
	default:
		printUsage(stderr)
		return 2
	}
}

func runStatus(client *Client, args []string, stdout, stderr *os.File, asJSON bool) int {
	watchFlags := flag.NewFlagSet("status", flag.ContinueOnError)
	watchFlags.SetOutput(stderr)
	interval := watchFlags.Duration("watch", 0, "poll status on this interval instead of probing once")
	if err := watchFlags.Parse(args); err != nil {
		return 2
	}

	if *interval <= 0 {
		printStatus(stdout, probeStatus(client), asJSON)
		return 0
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		printStatus(stdout, probeStatus(client), asJSON)
		<-ticker.C
	}
}

func runExec(client *Client, args []string, stdout, stderr *os.File) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "keyz-cli: exec requires a command, e.g. keyz-cli exec GET mykey")
		return 2
	}

	command := args[0]
	for _, part := range args[1:] {
		command += " " + part
	}

	reply, err := client.Send(command)
	if err != nil {
		fmt.Fprintf(stderr, "keyz-cli: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, reply)
	return 0
}

func runConfigSubcommand(args []string, stdout, stderr *os.File, configPath string, asJSON bool) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "keyz-cli: config requires a subcommand: show, init")
		return 2
	}

	switch args[0] {
	case "show":
		if err := runConfigShow(stdout, configPath, asJSON); err != nil {
			fmt.Fprintf(stderr, "keyz-cli: %v\n", err)
			return 1
		}
		return 0
	case "init":
		initFlags := flag.NewFlagSet("config init", flag.ContinueOnError)
		initFlags.SetOutput(stderr)
		force := initFlags.Bool("force", false, "overwrite an existing config file")
		if err := initFlags.Parse(args[1:]); err != nil {
			return 2
		}

		path := "keyz.toml"
		if rest := initFlags.Args(); len(rest) > 0 {
			path = rest[0]
		}
		if err := runConfigInit(path, *force); err != nil {
			fmt.Fprintf(stderr, "keyz-cli: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return 0
	default:
		fmt.Fprintln(stderr, "keyz-cli: config requires a subcommand: show, init")
		return 2
	}
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, `usage: keyz-cli [flags] <subcommand> [args]

subcommands:
  exec <command...>   send one command and print the reply
  interactive         open a REPL over a single connection
  commands            list the supported wire commands
  status [-watch d]   probe server reachability and latency, optionally polling
  config show         print the resolved configuration
  config init [path]  write a default configuration file (default: keyz.toml)
                      -force overwrites an existing file

flags:`)
}
