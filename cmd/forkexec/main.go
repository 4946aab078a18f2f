package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/khanghh/forkexec/abiutils"
	"github.com/khanghh/forkexec/chains"
	"github.com/khanghh/forkexec/fork"
	"github.com/khanghh/forkexec/forkexec"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app *cli.App
)

func init() {
	app = cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "Execute calls against bytecode injected into a forked chain"
	app.Version = fmt.Sprintf("%s - %s ", gitCommit, gitDate)
	app.Flags = []cli.Flag{
		configFileFlag,
		envFileFlag,
		rpcUrlFlag,
		chainIdFlag,
		blockFlag,
		traceModeFlag,
		timeoutFlag,
		requestFlag,
		labelsFlag,
		outFlag,
		formatFlag,
		verbosityFlag,
		logJSONFlag,
		metricsFlag,
	}
	app.Commands = []cli.Command{
		{
			Name:   "dumpconfig",
			Usage:  "Show configuration values",
			Action: dumpConfig,
		},
		{
			Name:   "chains",
			Usage:  "List the chains with a configured endpoint",
			Action: listChains,
		},
	}

	app.Action = run
	app.Before = func(ctx *cli.Context) error {
		if err := loadEnvFile(ctx.GlobalString(envFileFlag.Name)); err != nil {
			return err
		}
		setupLogging(ctx)
		if ctx.GlobalBool(metricsFlag.Name) {
			metrics.Enable()
		}
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		if ctx.GlobalBool(metricsFlag.Name) {
			logMetrics()
		}
		return nil
	}
}

func setupLogging(ctx *cli.Context) {
	level := log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name))
	var handler slog.Handler
	if ctx.GlobalBool(logJSONFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		var output io.Writer = os.Stderr
		usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		if usecolor {
			output = colorable.NewColorableStderr()
		}
		handler = log.NewTerminalHandlerWithLevel(output, level, usecolor)
	}
	log.SetDefault(log.NewLogger(handler))
}

func logMetrics() {
	all := metrics.DefaultRegistry.GetAll()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := all[name]
		log.Info("Metric", "name", name, "count", values["count"], "mean", values["mean"])
	}
}

// forkDefaults returns the fork settings given on the command line.
func forkDefaults(ctx *cli.Context) *fork.Config {
	cfg := &fork.Config{}
	if ctx.GlobalIsSet(rpcUrlFlag.Name) {
		url := ctx.GlobalString(rpcUrlFlag.Name)
		cfg.RPCURL = &url
	}
	if ctx.GlobalIsSet(chainIdFlag.Name) {
		chainID := ctx.GlobalUint64(chainIdFlag.Name)
		cfg.ChainID = &chainID
	}
	if ctx.GlobalIsSet(blockFlag.Name) {
		number := ctx.GlobalUint64(blockFlag.Name)
		cfg.BlockNumber = &number
	}
	return cfg
}

func openRequest(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func loadLabels(path string) (*abiutils.Registry, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return abiutils.LoadLabels(f)
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func run(ctx *cli.Context) error {
	config, err := makeAppConfig(ctx)
	if err != nil {
		return err
	}
	registry, err := makeRegistry(config)
	if err != nil {
		return err
	}
	labels, err := loadLabels(ctx.GlobalString(labelsFlag.Name))
	if err != nil {
		return fmt.Errorf("could not load labels: %v", err)
	}

	in, err := openRequest(ctx.GlobalString(requestFlag.Name))
	if err != nil {
		return err
	}
	body, err := decodeRequest(in)
	in.Close()
	if err != nil {
		return err
	}
	req, err := body.toEngineRequest(forkDefaults(ctx), config.Exec.TraceMode, labels)
	if err != nil {
		return err
	}

	runCtx, cancel := interruptContext(context.Background())
	defer cancel()
	if config.Exec.RequestTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, config.Exec.RequestTimeout)
		defer cancel()
	}

	engine := forkexec.NewEngine(registry)
	results, err := engine.Execute(runCtx, req)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if path := ctx.GlobalString(outFlag.Name); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writeResults(out, ctx.GlobalString(formatFlag.Name), results)
}

func listChains(ctx *cli.Context) error {
	config, err := makeAppConfig(ctx)
	if err != nil {
		return err
	}
	registry, err := makeRegistry(config)
	if err != nil {
		return err
	}
	names := make(map[uint64]string, len(chains.Networks))
	for _, network := range chains.Networks {
		names[network.ChainID] = network.Name
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Chain ID", "Network", "Endpoint"})
	for _, id := range registry.ChainIDs() {
		url, _ := registry.Lookup(id)
		table.Append([]string{strconv.FormatUint(id, 10), names[id], url})
	}
	if url, ok := registry.DefaultURL(); ok {
		table.SetFooter([]string{"", "default", url})
	}
	table.Render()
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
