// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/custodial/poolbank/api"
	"github.com/custodial/poolbank/bank"
	"github.com/custodial/poolbank/custody"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/eventdb"
	"github.com/custodial/poolbank/log"
	"github.com/custodial/poolbank/metrics"
)

var (
	version   string
	gitCommit string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "poolbankd",
		Usage:   "custodial staking ledger daemon",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			enableMetricsFlag,
			skipEventDBFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	if err := log.Init(os.Stderr, ctx.String(verbosityFlag.Name)); err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	stream := event.NewStream()
	sink := event.Fanout{stream}

	var db *eventdb.EventDB
	if !ctx.Bool(skipEventDBFlag.Name) {
		path := filepath.Join(ctx.String(dataDirFlag.Name), "events.db")
		db, err = eventdb.New(path)
		if err != nil {
			return err
		}
		defer func() { logger.Info("closing event database..."); db.Close() }()
		sink = append(sink, db.Sink())
	}

	vault := custody.NewMemVault(cfg.Seed)
	b := bank.New(cfg.Bank, cfg.Owner, vault, bank.Options{Sink: sink})

	handler, closeAPI := api.New(b, db, stream, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	defer closeAPI()

	listener, err := net.Listen("tcp", ctx.String(apiAddrFlag.Name))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting",
		"version", fullVersion(),
		"owner", cfg.Owner,
		"bank", cfg.Bank,
		"api", "http://"+listener.Addr().String(),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	group.Go(func() error {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("stopping API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
