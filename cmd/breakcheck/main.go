package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emenda-labs/breakcheck/core/app"
	"github.com/emenda-labs/breakcheck/core/cli"
	golangdriver "github.com/emenda-labs/breakcheck/drivers/golang"
	"github.com/emenda-labs/breakcheck/pkg/apicache"
	"github.com/emenda-labs/breakcheck/pkg/goproxy"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	newBackend := func(logger *zap.Logger) (app.Backend, error) {
		cache, err := apicache.OpenDefault("breakcheck")
		if err != nil {
			logger.Warn("API cache disabled", zap.Error(err))
		}
		goDriver := golangdriver.NewDriver(
			golangdriver.WithLogger(logger),
			golangdriver.WithCache(cache),
			golangdriver.WithProxyClient(goproxy.NewClient(goproxy.WithLogger(logger))),
		)
		return app.Backend{
			Driver:   goDriver,
			Resolver: goDriver,
			Analyzer: golangdriver.NewAnalyzer(goDriver, logger),
		}, nil
	}
	a := app.New(newBackend)

	var globals cli.GlobalOptions
	root := cli.NewRootCmd(version, &globals)
	root.AddCommand(
		cli.NewCheckCmd(&globals, a.Check),
		cli.NewAcceptCmd(&globals, a.Accept),
		cli.NewAcceptAllCmd(&globals, a.AcceptAll),
		cli.NewMigrateCmd(&globals, a.Migrate),
		cli.NewOverrideVersionCmd(&globals, a.OverrideVersion),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
