// Responsible for storing the latest device states collected from the smart meter.
// Depends on the interpreter API being online.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/p1_meter/pkg/config"
	"github.com/NotCoffee418/p1_meter/pkg/listener"
	"github.com/NotCoffee418/p1_meter/pkg/meterdb"
	"github.com/NotCoffee418/p1_meter/pkg/pathing"
	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "meter_collector",
		Short: "Store the latest meter states",
		Long: "meter_collector subscribes to the interpreter API websocket and keeps the latest " +
			"state of every meter in SQLite.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollector(cmd.Context())
		},
	}

	showCmd = &cobra.Command{
		Use:   "show [meter-id]",
		Short: "Print the stored states as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args)
		},
	}

	verbose bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(showCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func openStore() (*meterdb.Store, error) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if err := pathing.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if err := config.LoadMeterCollectorConfig(); err != nil {
		return nil, fmt.Errorf("failed to load meter collector config: %w", err)
	}
	return meterdb.Open(config.ActiveMeterCollectorConfig.DatabasePath)
}

func runCollector(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.ActiveMeterCollectorConfig
	opts := listener.Options{
		Host:       cfg.InterpreterAPIHost,
		TLSEnabled: cfg.TLSEnabled,
	}

	// Subscribe to websocket with revive
	return listener.Listen(ctx, opts, func(reading *types.Reading) {
		handleMeterReading(store, reading)
	}, logrus.WithField("component", "listener"))
}

func handleMeterReading(store *meterdb.Store, reading *types.Reading) {
	meterID, states, err := meterdb.StatesFromReading(reading)
	if err != nil {
		logrus.WithError(err).Error("Failed to build device states")
		return
	}
	if err := store.UpsertStates(meterID, states, reading.ReceivedAt); err != nil {
		logrus.WithError(err).WithField("meter_id", meterID).Error("Failed to store device states")
		return
	}
	logrus.WithFields(logrus.Fields{
		"meter_id": meterID,
		"states":   len(states),
	}).Debug(reading.Derived.Summary())
}

func runShow(args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	meterIDs := args
	if len(meterIDs) == 0 {
		if meterIDs, err = store.GetMeterIDs(); err != nil {
			return err
		}
	}

	result := make(map[string]*meterdb.DeviceStates, len(meterIDs))
	for _, meterID := range meterIDs {
		states, err := store.GetStates(meterID)
		if err != nil {
			return err
		}
		if result[meterID], err = meterdb.DecodeStates(states); err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
