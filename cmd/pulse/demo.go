package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulse-dev/pulse/pkg/inspect"
	"github.com/pulse-dev/pulse/pkg/metrics"
	"github.com/pulse-dev/pulse/pkg/pulse"
)

func demoCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a live graph with the inspector and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "inspector listen address (default from PULSE_INSPECT_ADDR)")
	return cmd
}

func runDemo(addr string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := inspect.ConfigFromEnv()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	if _, err := metrics.Register(); err != nil {
		return err
	}

	// A small order-total graph: two leaves, three derivations.
	price := pulse.NewState(100)
	qty := pulse.NewState(1)
	subtotal := pulse.NewComputed(func() int { return price.Get() * qty.Get() })
	tax := pulse.NewComputed(func() int { return subtotal.Get() / 5 })
	total := pulse.NewComputed(func() int { return subtotal.Get() + tax.Get() })
	total.Get()

	reg := inspect.NewRegistry()
	reg.Add("price", price)
	reg.Add("qty", qty)
	reg.Add("subtotal", subtotal)
	reg.Add("tax", tax)
	reg.Add("total", total)

	srv := inspect.NewServer(cfg, reg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				price.Set(50 + rand.Intn(100))
				qty.Set(1 + rand.Intn(5))
				log.Info("order updated", "total", total.Get(), "revision", pulse.CurrentRevision())
			}
		}
	}()

	log.Info("demo graph running", "nodes", 5, "inspector", cfg.Addr)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
