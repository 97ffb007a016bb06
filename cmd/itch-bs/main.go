// Copyright (c) 2025 Neomantra Corp

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neomantra/itch-blackscholes/internal/fileio"
	"github.com/neomantra/itch-blackscholes/internal/pipeline"
	"github.com/neomantra/itch-blackscholes/pricer"
)

///////////////////////////////////////////////////////////////////////////////

const (
	exitOK            = 0
	exitInputOpenFail = 1
	exitFramingFatal  = 2
	exitOutputFail    = 3
)

var (
	strike     float64
	rate       float64
	volatility float64
	maturity   float64

	outputMode   string
	emitOnIgnored bool

	inputPath  string
	outputPath string

	verbose  bool
	jsonLogs bool
)

func requireNoError(err error, code int) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(code)
	}
}

///////////////////////////////////////////////////////////////////////////////

func main() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Log in JSON instead of text")

	rootCmd.Flags().Float64Var(&strike, "strike", 100.0, "Black-Scholes strike price (K)")
	rootCmd.Flags().Float64Var(&rate, "rate", 0.05, "Black-Scholes risk-free rate (r)")
	rootCmd.Flags().Float64Var(&volatility, "volatility", 0.20, "Black-Scholes volatility (sigma)")
	rootCmd.Flags().Float64Var(&maturity, "maturity", 1.0, "Black-Scholes maturity in years (T)")
	rootCmd.Flags().StringVar(&outputMode, "output-mode", "binary", "Result encoding: \"binary\", \"text\", or \"json\"")
	rootCmd.Flags().BoolVar(&emitOnIgnored, "emit-on-ignored", false, "Emit a (0,0) pair for every Ignored message")
	rootCmd.Flags().StringVar(&inputPath, "input", "-", "Input ITCH byte stream path, \"-\" for stdin")
	rootCmd.Flags().StringVar(&outputPath, "output", "-", "Output result stream path, \"-\" for stdout")

	err := rootCmd.Execute()
	requireNoError(err, exitFramingFatal)
}

///////////////////////////////////////////////////////////////////////////////

var rootCmd = &cobra.Command{
	Use:   "itch-bs",
	Short: "itch-bs prices a call/put pair from a live ITCH order book after every message",
	Long: "itch-bs decodes a NASDAQ TotalView-ITCH 5.0 byte stream, maintains a single-instrument\n" +
		"limit order book, and prices a European call/put pair from the book's spot price\n" +
		"using a closed-form Black-Scholes model, after every applied message.",
	RunE: run,
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseOutputMode(mode string) (pipeline.OutputMode, error) {
	switch mode {
	case "binary", "":
		return pipeline.OutputBinary, nil
	case "text":
		return pipeline.OutputText, nil
	case "json":
		return pipeline.OutputJSON, nil
	default:
		return pipeline.OutputBinary, fmt.Errorf("unrecognized --output-mode %q (want \"binary\", \"text\", or \"json\")", mode)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	mode, err := parseOutputMode(outputMode)
	if err != nil {
		return err
	}

	in, inCloser, err := fileio.OpenInput(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening input %q: %s\n", inputPath, err.Error())
		os.Exit(exitInputOpenFail)
	}
	defer inCloser.Close()

	out, outCloser, err := fileio.CreateOutput(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening output %q: %s\n", outputPath, err.Error())
		os.Exit(exitInputOpenFail)
	}
	defer outCloser()

	cfg := pipeline.Config{
		Params: pricer.Params{
			Strike:     strike,
			Rate:       rate,
			Volatility: volatility,
			Maturity:   maturity,
		},
		OutputMode:    mode,
		EmitOnIgnored: emitOnIgnored,
		Logger:        logger,
	}

	summary, runErr := pipeline.Run(in, out, cfg)
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", runErr.Error())
		if errors.Is(runErr, pipeline.ErrWrite) {
			os.Exit(exitOutputFail)
		}
		os.Exit(exitFramingFatal)
	}

	// os.Exit below skips deferred calls, so the output is closed (and any
	// zstd frame finalized) here.
	if err := outCloser(); err != nil {
		fmt.Fprintf(os.Stderr, "error: closing output %q: %s\n", outputPath, err.Error())
		os.Exit(exitOutputFail)
	}

	logger.Info("done",
		"messages", humanize.Comma(int64(summary.Messages)),
		"ignored", humanize.Comma(int64(summary.Ignored)),
		"decode_warnings", humanize.Comma(int64(summary.DecodeWarnings)))
	os.Exit(exitOK)
	return nil
}
