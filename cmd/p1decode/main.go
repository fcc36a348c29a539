// p1decode decodes captured P1 telegrams from a file or stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/calculator"
	"github.com/NotCoffee418/p1_meter/pkg/checksum"
	"github.com/NotCoffee418/p1_meter/pkg/interpreter"
	"github.com/NotCoffee418/p1_meter/pkg/port_reader"
	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type decodeOptions struct {
	validate bool
	all      bool
	raw      bool
	maxLines int
}

var (
	rootCmd = &cobra.Command{
		Use:   "p1decode [file]",
		Short: "Decode captured DSMR P1 telegrams",
		Long: "p1decode reads telegrams from a capture file (or stdin when no file or \"-\" is given) " +
			"and prints every decoded reading as one JSON line.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			name, in := "stdin", io.ReadCloser(os.Stdin)
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				name, in = args[0], f
			}
			return runDecode(in, name, cmd.OutOrStdout(), opts, logrus.StandardLogger())
		},
	}

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "List the OBIS references the decoder understands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRules(cmd.OutOrStdout())
		},
	}

	opts    decodeOptions
	verbose bool
)

func init() {
	rootCmd.Flags().BoolVar(&opts.validate, "validate", false, "reject telegrams with a wrong CRC16 checksum")
	rootCmd.Flags().BoolVar(&opts.all, "all", false, "decode every telegram in the input instead of the first")
	rootCmd.Flags().BoolVar(&opts.raw, "raw", false, "include the raw telegram in the output")
	rootCmd.Flags().IntVar(&opts.maxLines, "max-lines", port_reader.DefaultMaxLines, "lines to read before giving up on a telegram")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.Fatal(err)
	}
}

func runDecode(in io.ReadCloser, name string, out io.Writer, opts decodeOptions, logger logrus.FieldLogger) error {
	conn := port_reader.NewConnection(name, in, opts.maxLines, logger)
	defer conn.Close()

	encoder := json.NewEncoder(out)
	decoded := 0
	for {
		raw, err := conn.ReadOneTelegram()
		if err != nil {
			if opts.all && decoded > 0 && errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		reading, err := decode(raw, opts)
		if err != nil {
			if !opts.all {
				return err
			}
			logger.WithError(err).Warn("Skipping telegram")
			continue
		}
		if err := encoder.Encode(reading); err != nil {
			return err
		}
		decoded++

		if !opts.all {
			return nil
		}
	}
}

func decode(raw types.RawTelegram, opts decodeOptions) (*types.Reading, error) {
	if opts.validate {
		if err := checksum.Validate(raw); err != nil {
			return nil, err
		}
	}
	record, err := interpreter.Decode(raw)
	if err != nil {
		return nil, err
	}
	reading := &types.Reading{
		ReceivedAt: time.Now(),
		Record:     record,
		Derived:    calculator.Derive(record),
	}
	if opts.raw {
		reading.Raw = raw.String()
	}
	return reading, nil
}

func printRules(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OBIS\tFIELD\tKIND\tUNIT\tGROUP")
	for _, rule := range interpreter.Rules() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", rule.OBIS, rule.Name, rule.Kind, rule.Unit, rule.Group)
	}
	return w.Flush()
}
