// Command extract reads a schedule from a file, a string or stdin and
// prints the recognized records.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/app"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		in       = flag.String("in", "", "input file (image, pdf, txt, csv, xlsx, html); empty or - reads stdin")
		text     = flag.String("text", "", "extract from this text instead of a file")
		format   = flag.String("format", "txt", "output format: "+strings.Join(constants.ExportFormatsAsStrings(), ", "))
		out      = flag.String("out", "", "output file (default stdout)")
		persist  = flag.Bool("persist", false, "store the file and records in the configured database")
		progress = flag.Bool("progress", false, "report OCR progress on stderr")
	)
	flag.Parse()

	exportFormat, ok := constants.CanonicalExportFormat(*format)
	if !ok {
		printError("Error: unknown --format %q\n", *format)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if !*persist {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = app.InMemoryDSN
	}
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	var res extract.Result
	switch {
	case *text != "":
		res, err = a.Processor.ExtractText(ctx, *text)
	case *in == "" || *in == "-":
		data, rErr := io.ReadAll(os.Stdin)
		if rErr != nil {
			printError("Error: read stdin: %v\n", rErr)
			os.Exit(1)
		}
		res, err = a.Processor.ExtractText(ctx, string(data))
	default:
		stored, iErr := a.Ingestor.IngestPath(ctx, *in)
		if iErr != nil {
			printError("Error: %v\n", iErr)
			os.Exit(1)
		}
		var report func(float64)
		if *progress {
			report = func(f float64) { printError("\rOCR %3.0f%%", f*100) }
		}
		outcome, pErr := a.Processor.ProcessFile(ctx, stored.FileID, report)
		if *progress {
			printError("\n")
		}
		res, err = outcome.Result, pErr
	}

	for _, w := range res.Warnings {
		printError("warning: %s\n", w)
	}
	if err != nil {
		if common.ErrorCode(err) == common.CodeRecognitionEmpty {
			printError("No schedule rows recognized. Edit the text and retry, or add the rows manually.\n")
			os.Exit(3)
		}
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	art, err := a.Exporter.Export(ctx, res.Records, exportFormat)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		_, err = os.Stdout.Write(art.Data)
	} else {
		err = os.WriteFile(*out, art.Data, 0o644)
	}
	if err != nil {
		printError("Error: write output: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("extract.cli.done", "strategy", res.StrategyUsed, "records", len(res.Records), "format", exportFormat)
}
