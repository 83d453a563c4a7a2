// Package linear implements a logistic-regression classifier whose weights are
// loaded from a YAML model file.
package linear

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/features"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Model is the on-disk representation of a trained model
type Model struct {
	Name         string             `yaml:"name"`
	FeatureOrder []string           `yaml:"feature_order"`
	Intercept    float64            `yaml:"intercept"`
	Weights      map[string]float64 `yaml:"weights"`
}

// Classifier scores feature vectors with a logistic model
type Classifier struct {
	model   Model
	weights []float64
	logger  *zap.Logger
}

// LoadFile reads a model file. A missing file yields core.ErrModelUnavailable.
func LoadFile(path string, logger *zap.Logger) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	return Load(f, logger)
}

// Load decodes and validates a model
func Load(r io.Reader, logger *zap.Logger) (*Classifier, error) {
	var m Model
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return New(m, logger)
}

// New validates a model against the feature schema
func New(m Model, logger *zap.Logger) (*Classifier, error) {
	if len(m.FeatureOrder) == 0 {
		m.FeatureOrder = features.Names()
	}
	if m.Name == "" {
		m.Name = "linear"
	}

	// Every name must belong to the schema
	if _, err := (features.Vector{}).Reindex(m.FeatureOrder); err != nil {
		return nil, fmt.Errorf("invalid feature_order: %w", err)
	}

	position := make(map[string]int, len(m.FeatureOrder))
	for i, name := range m.FeatureOrder {
		position[name] = i
	}
	weights := make([]float64, len(m.FeatureOrder))
	for name, w := range m.Weights {
		i, ok := position[name]
		if !ok {
			return nil, fmt.Errorf("weight for %q: %w", name, features.ErrUnknownFeature)
		}
		weights[i] = w
	}

	if logger != nil {
		logger.Info("Loaded linear model",
			zap.String("name", m.Name),
			zap.Int("features", len(m.FeatureOrder)))
	}

	return &Classifier{model: m, weights: weights, logger: logger}, nil
}

// Name returns the model name
func (c *Classifier) Name() string {
	return c.model.Name
}

// Score returns the phishing probability for a vector
func (c *Classifier) Score(vector features.Vector) (float64, error) {
	x, err := vector.Reindex(c.model.FeatureOrder)
	if err != nil {
		return 0, err
	}
	z := c.model.Intercept
	for i, w := range c.weights {
		z += w * x[i]
	}
	return sigmoid(z), nil
}

// Predict implements core.Classifier
func (c *Classifier) Predict(ctx context.Context, email *core.Email, vector features.Vector) (*core.Prediction, error) {
	p, err := c.Score(vector)
	if err != nil {
		return nil, err
	}

	label := core.LabelLegitimate
	if p >= 0.5 {
		label = core.LabelPhishing
	}

	return &core.Prediction{
		Label:                 label,
		PhishingProbability:   p,
		LegitimateProbability: 1 - p,
		Explanation:           c.explain(vector),
		ModelUsed:             c.model.Name,
	}, nil
}

// explain lists the features pushing hardest towards a phishing verdict
func (c *Classifier) explain(vector features.Vector) string {
	x, err := vector.Reindex(c.model.FeatureOrder)
	if err != nil {
		return ""
	}

	type contribution struct {
		name  string
		value float64
	}
	var contribs []contribution
	for i, w := range c.weights {
		if v := w * x[i]; v > 0 {
			contribs = append(contribs, contribution{c.model.FeatureOrder[i], v})
		}
	}
	if len(contribs) == 0 {
		return "No phishing indicators contributed to the score"
	}
	sort.Slice(contribs, func(i, j int) bool {
		if contribs[i].value == contribs[j].value {
			return contribs[i].name < contribs[j].name
		}
		return contribs[i].value > contribs[j].value
	})
	if len(contribs) > 3 {
		contribs = contribs[:3]
	}

	names := make([]string, len(contribs))
	for i, ct := range contribs {
		names[i] = ct.name
	}
	return "Top indicators: " + strings.Join(names, ", ")
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
