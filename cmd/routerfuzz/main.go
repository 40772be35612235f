// routerfuzz replays fuzz corpus inputs through the router fuzz harness
// outside of a fuzzing engine, which is the quickest way to turn a crash
// artifact into a readable trace. The replay wires the harness to a fresh
// in-memory graph per input; the path-finding engine is supplied by the
// embedding test binary during real fuzzing, so replays run with a router
// that finds no routes and exercise the gossip replay half of the harness.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
	"github.com/lightningnetwork/routerfuzz/harness"
	"github.com/lightningnetwork/routerfuzz/memgraph"
	"github.com/lightningnetwork/routerfuzz/routecheck"
	"github.com/urfave/cli"
)

// noRouter satisfies the Router contract without ever finding a route,
// which the harness treats the same way as any other routing failure.
type noRouter struct{}

// FindRoutes always fails.
//
// This is part of the harness.Router interface.
func (noRouter) FindRoutes(_ gossipwire.NodeID, _ harness.Graph,
	_ gossipwire.NodeID, _ []*routecheck.DirectChannel,
	_ []*routecheck.HopHint, _ gossipwire.MilliSatoshi,
	_ uint32) (*routecheck.Route, error) {

	return nil, fmt.Errorf("no router wired into replay")
}

func main() {
	app := cli.NewApp()
	app.Name = "routerfuzz"
	app.Usage = "replay router fuzz corpus inputs"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "debuglevel",
			Value: "info",
			Usage: "logging level: trace, debug, info, warn, " +
				"error, critical",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "replay a corpus file or directory",
			ArgsUsage: "path",
			Action:    runCorpus,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging points every package logger at stdout with the requested
// level.
func setupLogging(level string) error {
	logLevel, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	backend := btclog.NewBackend(os.Stdout)
	for _, use := range []struct {
		tag string
		fn  func(btclog.Logger)
	}{
		{"HRNS", harness.UseLogger},
		{"GRPH", memgraph.UseLogger},
		{"RCHK", routecheck.UseLogger},
	} {
		logger := backend.Logger(use.tag)
		logger.SetLevel(logLevel)
		use.fn(logger)
	}

	return nil
}

// runCorpus replays every input under the given path, one fresh harness and
// graph per input. Invariant violations surface as panics, exactly as they
// would under the fuzzing engine.
func runCorpus(c *cli.Context) error {
	if err := setupLogging(c.GlobalString("debuglevel")); err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing corpus path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	inputs := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		inputs = inputs[:0]
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			inputs = append(
				inputs, filepath.Join(path, entry.Name()),
			)
		}
	}

	for _, input := range inputs {
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}

		fmt.Printf("replaying %s (%d bytes)\n", input, len(data))

		h := harness.New(harness.Config{
			Graph: memgraph.New(
				*chaincfg.MainNetParams.GenesisHash,
			),
			Router: noRouter{},
		})
		h.Run(data)
	}

	return nil
}
