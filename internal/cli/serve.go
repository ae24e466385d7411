package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/performance-report-service/internal/events"
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume report requests from Kafka and expose /metrics",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := a.reportService(ctx, reg)
	if err != nil {
		return err
	}

	subscriber, err := a.cfg.Events.CreateRequestSubscriber(a.logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, subscriber.Close)

	consumer, err := events.NewRequestConsumer(subscriber, a.cfg.Events.RequestTopic,
		func(ctx context.Context, req *models.ReportRequest) error {
			_, err := svc.GenerateReport(ctx, req)
			return err
		}, a.logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Metrics listener started", "addr", a.cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	consumerErr := make(chan error, 1)
	go func() {
		a.logger.Info("Consuming report requests",
			"topic", a.cfg.Events.RequestTopic,
			"consumer_group", a.cfg.Events.ConsumerGroup)
		consumerErr <- consumer.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		err = nil
	case err = <-serverErr:
	case err = <-consumerErr:
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Warn("Metrics listener shutdown failed", "error", shutdownErr)
	}
	if closeErr := consumer.Close(); closeErr != nil {
		a.logger.Warn("Consumer shutdown failed", "error", closeErr)
	}
	return err
}
