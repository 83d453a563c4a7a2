package di

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mikey/phishing-detector/internal/adapters/filter"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/ports"
)

func TestBuildContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
classifier:
  provider: linear
  model_path: ../../configs/model.yaml
server:
  filter_type: http
  listen_address: 127.0.0.1:0
detection:
  threshold: 0.6
  trusted_domains: [company.com]
cache:
  type: memory
  cleanup_frequency: 0s
logging:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	container, err := BuildContainer(path)
	if err != nil {
		t.Fatalf("BuildContainer failed: %v", err)
	}

	err = container.Invoke(func(f ports.EmailFilter, service *core.DetectionService, repo core.CacheRepository) {
		if _, ok := f.(*filter.HTTPFilter); !ok {
			t.Errorf("expected HTTP filter, got %T", f)
		}
		if !service.ModelAvailable() {
			t.Error("expected the shipped model to be loaded")
		}
		if service.Threshold() != 0.6 {
			t.Errorf("expected threshold 0.6, got %v", service.Threshold())
		}
		if repo == nil {
			t.Error("expected a cache repository")
		}
		if s, ok := repo.(interface{ Stop() }); ok {
			s.Stop()
		}
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
}

func TestBuildCLIContainer(t *testing.T) {
	flags, err := ParseFlags("phishing-detector", []string{
		"-model", "../../configs/model.yaml",
		"-threshold", "0.7",
		"-trusted", "company.com, example.org,",
		"-features-only",
		"-interactive",
	})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !flags.FeaturesOnly || !flags.Interactive || flags.Provider != "linear" {
		t.Errorf("unexpected flags %+v", flags)
	}

	container, err := BuildCLIContainer(flags)
	if err != nil {
		t.Fatalf("BuildCLIContainer failed: %v", err)
	}
	err = container.Invoke(func(f *filter.CliFilter, service *core.DetectionService) {
		if !service.ModelAvailable() || service.Threshold() != 0.7 {
			t.Errorf("unexpected service state: model=%v threshold=%v", service.ModelAvailable(), service.Threshold())
		}
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a.com", []string{"a.com"}},
		{" a.com , ,b.com ", []string{"a.com", "b.com"}},
	}
	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
