// Interpreter API is responsible for reading the P1 port and broadcasting the readings.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/config"
	"github.com/NotCoffee418/p1_meter/pkg/exporter"
	"github.com/NotCoffee418/p1_meter/pkg/pathing"
	"github.com/NotCoffee418/p1_meter/pkg/poller"
	"github.com/NotCoffee418/p1_meter/pkg/port_reader"
	"github.com/NotCoffee418/p1_meter/pkg/publisher"
	"github.com/NotCoffee418/p1_meter/pkg/solarinverter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "interpreter_api",
		Short: "Read the P1 port and serve the readings",
		Long: "interpreter_api polls a DSMR smart meter on its P1 port and serves every reading " +
			"over HTTP, WebSocket and Prometheus metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	verbose bool
	showRaw bool
)

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every read cycle, overrides log_level")
	rootCmd.Flags().BoolVar(&showRaw, "show-raw", false, "log and include the raw telegram, overrides show_raw")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context) error {
	if err := pathing.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := config.LoadInterpreterAPIConfig(); err != nil {
		return fmt.Errorf("failed to load interpreter API config: %w", err)
	}
	cfg := config.ActiveInterpreterAPIConfig
	if verbose {
		cfg.LogLevel = config.LogLevelVerbose
	}
	if showRaw {
		cfg.ShowRaw = true
	}
	logrus.SetLevel(cfg.LogrusLevel())

	serialConfig, err := cfg.SerialConfig()
	if err != nil {
		return err
	}

	// Start P1 reader
	source := &port_reader.Source{
		Config: serialConfig,
		Logger: logrus.WithField("component", "port_reader"),
	}
	p1Poller := poller.New(source, poller.Options{
		Interval:         cfg.PollInterval(),
		ValidateChecksum: cfg.ValidateChecksum,
		ShowRaw:          cfg.ShowRaw,
	}, logrus.WithField("component", "poller"))

	wsHub := newHub(logrus.WithField("component", "websocket"))
	p1Poller.OnReading(wsHub.Broadcast)

	if cfg.KafkaBroker != "" {
		kafkaPublisher := publisher.New(cfg.KafkaBroker, cfg.KafkaTopic, logrus.WithField("component", "kafka"))
		defer kafkaPublisher.Close()
		p1Poller.OnReading(kafkaPublisher.Handle)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter.NewCollector(p1Poller, reg)

	inverter := solarinverter.New(solarinverter.Config{
		IP:               cfg.SolarInverterIp,
		ModbusPort:       cfg.SolarInverterModbusPort,
		WlanConnectionID: cfg.WlanConnectionId,
	}, logrus.WithField("component", "solarinverter"))

	srv := newServer(
		p1Poller,
		inverter,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		wsHub,
		logrus.WithField("component", "http"),
	)

	if err := p1Poller.Init(); err != nil {
		return err
	}
	if err := p1Poller.Start(ctx); err != nil {
		return err
	}
	defer p1Poller.Stop()

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	httpServer := &http.Server{
		Addr:              listener,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down")
		wsHub.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logrus.WithFields(logrus.Fields{
		"device":  serialConfig.Device,
		"version": cfg.DSMRVersion,
	}).Infof("Starting P1 Meter Interpreter API on %s", listener)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
