package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mikey/phishing-detector/internal/dataset"
	"github.com/mikey/phishing-detector/internal/logging"
	"go.uber.org/zap"
)

func main() {
	datasetPath := flag.String("dataset", "phishing_dataset.csv", "Labelled dataset CSV (subject,content,from,to,label)")
	outPath := flag.String("out", "", "Feature matrix output file (stdout if empty)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog := flag.Bool("json-log", false, "Output logs in JSON format")
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *datasetPath, *outPath); err != nil {
		logger.Error("Feature export failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, datasetPath, outPath string) error {
	samples, err := loadOrCreate(logger, datasetPath)
	if err != nil {
		return err
	}

	phishing, legitimate := dataset.Counts(samples)
	logger.Info("Dataset loaded",
		zap.Int("samples", len(samples)),
		zap.Int("phishing", phishing),
		zap.Int("legitimate", legitimate))

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := dataset.ExportFeatures(out, samples); err != nil {
		return fmt.Errorf("failed to write feature matrix: %w", err)
	}
	if outPath != "" {
		logger.Info("Feature matrix written", zap.String("file", outPath))
	}
	return nil
}

// loadOrCreate reads the dataset, writing the built-in samples first when the
// file does not exist
func loadOrCreate(logger *zap.Logger, path string) ([]dataset.Sample, error) {
	samples, err := dataset.ReadFile(path)
	if err == nil {
		return samples, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	logger.Info("Dataset not found, creating sample dataset", zap.String("file", path))
	samples = dataset.SampleData()
	if err := dataset.WriteFile(path, samples); err != nil {
		return nil, fmt.Errorf("failed to write sample dataset: %w", err)
	}
	return samples, nil
}
