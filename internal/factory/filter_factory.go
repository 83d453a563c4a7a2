package factory

import (
	"fmt"
	"os"

	"github.com/mikey/phishing-detector/internal/adapters/filter"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/metrics"
	"github.com/mikey/phishing-detector/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *core.DetectionService
	recorder *metrics.Recorder
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.DetectionService, recorder *metrics.Recorder) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		service:  service,
		recorder: recorder,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.FilterType {
	case "http":
		var handler filter.MetricsHandler
		if f.recorder != nil {
			handler = f.recorder
		}
		return filter.NewHTTPFilter(f.service, f.logger, serverCfg, handler), nil
	case "postfix":
		return filter.NewPostfixFilter(f.service, f.logger, serverCfg), nil
	case "imap":
		imapCfg, err := f.cfg.GetIMAP()
		if err != nil {
			return nil, err
		}
		return filter.NewIMAPFilter(f.service, f.logger, imapCfg), nil
	case "cli":
		return filter.NewCliFilter(f.service, f.logger, os.Stdout, f.cfg.GetBool("cli.verbose")), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
