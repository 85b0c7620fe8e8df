package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	streamrt "github.com/hostgpu/go-stream-runtime"
	"github.com/hostgpu/go-stream-runtime/core"
	obs "github.com/hostgpu/go-stream-runtime/observability/prometheus"
)

func main() {
	app := &cli.App{
		Name:  "streamrt",
		Usage: "Host-side stream runtime demo and diagnostics",
		Commands: []*cli.Command{
			runCommand(),
			checkConfigCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a synthetic workload across user streams",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.IntFlag{
				Name:  "streams",
				Value: 4,
				Usage: "Number of user streams",
			},
			&cli.IntFlag{
				Name:  "tasks",
				Value: 32,
				Usage: "Tasks posted per stream",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :2112)",
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := streamrt.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
	}
	streams := c.Int("streams")
	tasks := c.Int("tasks")
	if streams <= 0 || tasks <= 0 {
		return cli.Exit("streams and tasks must be positive", 1)
	}

	opts := cfg.Options()

	var server *http.Server
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prom.NewRegistry()
		exporter, err := obs.NewMetricsExporter("streamrt", reg, obs.ExporterOptions{})
		if err != nil {
			return cli.Exit(fmt.Sprintf("metrics exporter: %v", err), 1)
		}
		opts.Metrics = exporter

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: addr, Handler: mux}
		go func() {
			_ = server.ListenAndServe()
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		}()
		fmt.Printf("metrics at http://127.0.0.1%s/metrics\n", addr)
	}

	r := core.NewRuntime(opts)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = r.Close(ctx)
	}()

	ctx := c.Context
	start := time.Now()
	var executed atomic.Int64

	handles := make([]core.StreamHandle, 0, streams)
	for range streams {
		h, err := r.MakeStreamAsync().Wait(ctx)
		if err != nil {
			return cli.Exit(fmt.Sprintf("create stream: %v", err), 1)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		for range tasks {
			if _, err := r.PostTask(&h, func(taskCtx context.Context) {
				executed.Add(1)
			}); err != nil {
				return cli.Exit(fmt.Sprintf("post task: %v", err), 1)
			}
		}
	}
	if err := r.Synchronize(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("synchronize: %v", err), 1)
	}

	stats := r.Stats()
	fmt.Printf("✓ %d tasks across %d streams in %v (drains: %d)\n",
		executed.Load(), streams, time.Since(start).Round(time.Microsecond), stats.Drains)
	return nil
}

func checkConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "check-config",
		Aliases: []string{"cc"},
		Usage:   "Validate a config file and print the effective settings",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "Path to a YAML config file",
			},
		},

		Action: checkConfigAction,
	}
}

func checkConfigAction(c *cli.Context) error {
	cfg, err := streamrt.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
	}

	fmt.Println("✓ Config is valid")
	fmt.Printf("  log backend:  %s\n", cfg.Log.Backend)
	fmt.Printf("  log level:    %s\n", cfg.Log.Level)
	fmt.Printf("  log format:   %s\n", cfg.Log.Format)
	fmt.Printf("  spin backoff: [%d, %d]\n", cfg.SpinBackoffMin, cfg.SpinBackoffMax)
	return nil
}
