// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Value: "poolbank.yaml",
		Usage: "path to the bank configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: ".",
		Usage: "directory for the event database",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8580",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Value: "info",
		Usage: "log verbosity (debug|info|warn|error)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection and the /metrics endpoint",
	}
	skipEventDBFlag = cli.BoolFlag{
		Name:  "skip-eventdb",
		Usage: "disable event persistence (audit queries unavailable)",
	}
)
