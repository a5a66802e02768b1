package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avfoundry/go-streamline/core"
	"github.com/avfoundry/go-streamline/elements"
	"github.com/avfoundry/go-streamline/internal/logger"
	"github.com/avfoundry/go-streamline/registry"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// The flag package prints parse errors and usage; validation
		// errors from parseFlags are not printed.
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	// Initialize global logger and set level based on flag
	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	reg := registry.Default()
	if err := elements.Register(reg); err != nil {
		log.Error("failed to register core elements", "error", err)
		os.Exit(1)
	}
	if err := reg.LoadCache(); err != nil {
		log.Warn("registry cache unusable", "error", err)
	}
	defer func() {
		if err := reg.SaveCache(); err != nil {
			log.Warn("registry cache not written", "error", err)
		}
	}()

	srcProv, err := reg.Make("fakesrc", "src0")
	if err != nil {
		log.Error("make source", "error", err)
		os.Exit(1)
	}
	sinkProv, err := reg.Make("fakesink", "sink0")
	if err != nil {
		log.Error("make sink", "error", err)
		os.Exit(1)
	}
	src := srcProv.(*elements.FakeSrc)
	sink := sinkProv.(*elements.FakeSink)
	src.SetNumBuffers(cfg.numBuffers)
	src.SetBlocksize(int(cfg.blocksize))
	src.SetSize(cfg.size)
	src.SetLive(cfg.live)

	pipe := core.NewPipeline("pipeline0")
	if err := pipe.AddMany(src, sink); err != nil {
		log.Error("assemble pipeline", "error", err)
		os.Exit(1)
	}
	var sinkIn *core.Pad = sink.Pad()
	if cfg.useQueue {
		qProv, err := reg.Make("queue", "queue0")
		if err != nil {
			log.Error("make queue", "error", err)
			os.Exit(1)
		}
		q := qProv.(*elements.Queue)
		if err := pipe.Add(q); err != nil {
			log.Error("add queue", "error", err)
			os.Exit(1)
		}
		if err := q.SrcPad().Link(sinkIn); err != nil {
			log.Error("link queue", "error", err)
			os.Exit(1)
		}
		sinkIn = q.SinkPad()
	}
	if err := src.Pad().Link(sinkIn); err != nil {
		log.Error("link pipeline", "error", err)
		os.Exit(1)
	}

	if ret := pipe.SetState(core.StatePlaying); ret == core.StateFailure {
		log.Error("pipeline refused to play")
		os.Exit(1)
	}
	log.Info("pipeline playing", "num_buffers", cfg.numBuffers, "blocksize", cfg.blocksize, "live", cfg.live)

	// Set up signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := pipe.Bus()
	exitCode := 0
loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			break loop
		default:
		}
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type {
		case core.MsgEOS:
			log.Info("end of stream", "buffers", sink.BufferCount())
			break loop
		case core.MsgError:
			log.Error("pipeline error", "src", msg.Src.Name(), "error", msg.Err, "debug", msg.Debug)
			exitCode = 1
			break loop
		case core.MsgStateChanged:
			log.Debug("state changed", "src", msg.Src.Name(), "from", msg.OldState.String(), "to", msg.NewState.String())
		}
	}

	if ret := pipe.SetState(core.StateNull); ret == core.StateFailure {
		log.Error("pipeline did not shut down cleanly")
		exitCode = 1
	}
	os.Exit(exitCode)
}
