package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/jimsnab/go-lane"
	"github.com/spf13/afero"

	"github.com/wvaviator/mycokv/internal/appdir"
	"github.com/wvaviator/mycokv/internal/engine"
	"github.com/wvaviator/mycokv/internal/protocol"
	"github.com/wvaviator/mycokv/internal/wal"
	"github.com/wvaviator/mycokv/internal/worker"
)

const expirationSweepInterval = 250 * time.Millisecond

type options struct {
	Port    uint16 `short:"p" long:"port" description:"TCP port to listen on" value-name:"port" default:"6922"`
	Purge   bool   `long:"purge" description:"truncate the write-ahead log at startup before recovery"`
	DataDir string `long:"data-dir" description:"override the discovered application data directory" value-name:"path"`
	Verbose bool   `long:"verbose" description:"raise logging verbosity"`
}

func parseOptions(args []string) *options {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(args); err != nil {
		os.Exit(1)
	}
	return &opts
}

func main() {
	opts := parseOptions(os.Args[1:])

	l := lane.NewLogLane(context.Background())
	if opts.Verbose {
		l.SetLogLevel(lane.LogLevelTrace)
	}

	walPath, err := appdir.WALPath(opts.DataDir)
	if err != nil {
		l.Fatalf("cannot resolve data directory: %s", err.Error())
	}

	fs := afero.NewOsFs()

	if opts.Purge {
		if err := fs.Remove(walPath); err != nil && !os.IsNotExist(err) {
			l.Fatalf("cannot purge wal at %s: %s", walPath, err.Error())
		}
	}

	w, err := wal.Open(l, fs, walPath)
	if err != nil {
		l.Fatalf("cannot open wal at %s: %s", walPath, err.Error())
	}
	defer w.Close()

	eng := engine.New(l, w)
	if err := eng.Restore(); err != nil {
		l.Fatalf("cannot restore from wal: %s", err.Error())
	}

	sweeper := worker.Start(expirationSweepInterval, eng.ProcessExpirations)
	defer sweeper.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", opts.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		l.Fatalf("cannot bind %s: %s", addr, err.Error())
	}
	defer lis.Close()

	l.Infof("mycokv listening on %s, wal at %s", addr, walPath)

	srv := protocol.New(l, eng)
	if err := srv.Serve(lis); err != nil {
		l.Errorf("server stopped: %s", err.Error())
		os.Exit(1)
	}
}
