package factory

import (
	"errors"
	"fmt"

	"github.com/mikey/phishing-detector/internal/adapters/linear"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates classifiers
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates the classifier selected by classifier.provider.
// A missing linear model file is not an error: the result is nil and the
// detection service reports the model as unavailable.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	classifierCfg := f.cfg.GetClassifier()

	switch classifierCfg.Provider {
	case "linear":
		clf, err := linear.LoadFile(classifierCfg.ModelPath, f.logger)
		if errors.Is(err, core.ErrModelUnavailable) {
			f.logger.Warn("No model loaded, detection requests will fail until one is installed",
				zap.String("model_path", classifierCfg.ModelPath))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return clf, nil
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", classifierCfg.Provider)
	}
}
