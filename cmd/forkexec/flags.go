package main

import (
	"gopkg.in/urfave/cli.v1"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	envFileFlag = cli.StringFlag{
		Name:  "envfile",
		Usage: "File with KEY=VALUE endpoint variables, loaded without overriding the environment",
		Value: ".env",
	}
	rpcUrlFlag = cli.StringFlag{
		Name:  "rpcurl",
		Usage: "RPC url of the node to fork from, takes precedence over --chainid",
	}
	chainIdFlag = cli.Uint64Flag{
		Name:  "chainid",
		Usage: "Chain id to fork, selects the endpoint from ETH_RPC, BASE_RPC, ... and overrides the chain id reported by the node",
	}
	blockFlag = cli.Uint64Flag{
		Name:  "block",
		Usage: "Block number to fork at (default: latest)",
	}
	traceModeFlag = cli.StringFlag{
		Name:  "trace",
		Usage: "Trace mode: none, call, jumpSimple, jump or debug",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Usage: "Deadline for the whole request, 0 waits indefinitely",
	}
	requestFlag = cli.StringFlag{
		Name:  "request",
		Usage: "JSON request file, - reads stdin",
		Value: "-",
	}
	labelsFlag = cli.StringFlag{
		Name:  "labels",
		Usage: "JSON file of 4-byte signatures and interfaces used to label trace frames",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Write results to file instead of stdout",
	}
	formatFlag = cli.StringFlag{
		Name:  "format",
		Usage: "Output format: json or table",
		Value: "json",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logJSONFlag = cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs with JSON",
	}
	metricsFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable metrics collection and log a summary on exit",
	}
)
