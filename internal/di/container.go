package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/factory"
	"github.com/mikey/phishing-detector/internal/logging"
	"github.com/mikey/phishing-detector/internal/metrics"
	"github.com/mikey/phishing-detector/internal/ports"
	"github.com/mikey/phishing-detector/internal/utils"
	"github.com/mikey/phishing-detector/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container.
// configFile may be empty to use the default search paths.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewWithFile(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideDetection(container); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideDetection registers everything the detection service needs apart
// from configuration, logging and the cache
func provideDetection(container *dig.Container) error {
	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register classifier
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register metrics
	if err := container.Provide(metrics.NewRecorder); err != nil {
		return err
	}
	if err := container.Provide(func(r *metrics.Recorder) core.MetricsRecorder {
		return r
	}); err != nil {
		return err
	}

	// Register trusted sender domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		domains := cfg.GetDetection().TrustedDomains
		if len(domains) > 0 {
			logger.Info("Loaded trusted domains", zap.Strings("domains", domains))
		}
		return whitelist.NewChecker(domains, logger)
	}); err != nil {
		return err
	}

	// Register detection settings
	if err := container.Provide(func(cfg *config.Config) (core.DetectionConfig, error) {
		cacheCfg, err := cfg.GetCache()
		if err != nil {
			return core.DetectionConfig{}, err
		}
		return core.DetectionConfig{
			CacheEnabled: cacheCfg.Enabled,
			CacheTTL:     cacheCfg.TTL,
			Threshold:    cfg.GetDetection().Threshold,
		}, nil
	}); err != nil {
		return err
	}

	// Register detection service
	return container.Provide(core.NewDetectionService)
}
