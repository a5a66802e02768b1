package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...". Defaults to dev.
var version = "dev"

// cliConfig holds user supplied flag values prior to building the
// pipeline so main.go can validate and map.
type cliConfig struct {
	logLevel    string
	numBuffers  int
	blocksize   uint
	size        int64
	live        bool
	useQueue    bool
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("stream-launch", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.IntVar(&cfg.numBuffers, "num-buffers", 16, "Buffers to produce before EOS (negative = unlimited)")
	fs.UintVar(&cfg.blocksize, "blocksize", 4096, "Bytes per produced buffer")
	fs.Int64Var(&cfg.size, "size", -1, "Total source size in bytes (negative = unbounded)")
	fs.BoolVar(&cfg.live, "live", false, "Run the source in live mode (no preroll)")
	fs.BoolVar(&cfg.useQueue, "queue", false, "Insert a queue between source and sink")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.blocksize == 0 || cfg.blocksize > 1<<20 {
		return nil, errors.New("blocksize must be between 1 and 1048576")
	}
	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}
	if cfg.live && cfg.numBuffers < 0 {
		return nil, errors.New("live mode requires a finite -num-buffers")
	}
	return cfg, nil
}
