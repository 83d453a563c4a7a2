package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mikey/phishing-detector/internal/adapters/filter"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/di"
	"github.com/mikey/phishing-detector/internal/mailparse"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags(os.Args[0], os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	cli *filter.CliFilter,
	classifier core.Classifier,
) error {
	defer logger.Sync()

	var email *core.Email
	var err error
	if flags.Interactive {
		email, err = cli.Prompt(os.Stdin)
	} else {
		email, err = readEmail(flags, logger)
	}
	if err != nil {
		return err
	}

	if flags.FeaturesOnly {
		return cli.WriteFeatures(email)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err = cli.ProcessEmail(ctx, email)

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			logger.Error("Failed to close classifier", zap.Error(cerr))
		}
	}
	return err
}

// readEmail builds the email from -body, -file or stdin, in that order
func readEmail(flags *di.CLIFlags, logger *zap.Logger) (*core.Email, error) {
	if flags.Body != "" {
		return &core.Email{
			From:    flags.From,
			To:      di.SplitList(flags.To),
			Subject: flags.Subject,
			Body:    flags.Body,
		}, nil
	}

	var msg *mailparse.Message
	var err error
	if flags.InputFile != "" {
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
		msg, err = mailparse.ParseFile(flags.InputFile)
	} else {
		logger.Info("Reading email from stdin")
		msg, err = mailparse.Parse(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}
	if msg.Partial {
		logger.Warn("Some message parts could not be decoded and were skipped")
	}
	return msg.Email(), nil
}
