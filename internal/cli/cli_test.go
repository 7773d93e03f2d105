package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/PACSamericana/poly/internal/model"
	"github.com/PACSamericana/poly/internal/pipeline"
	"github.com/PACSamericana/poly/internal/synthesize"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v, model.DefaultConfig())
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Provider != "groq" {
		t.Errorf("Expected groq provider, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "gsk-test" {
		t.Errorf("Expected API key from GROQ_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Concurrency.SectionWorkers != 4 {
		t.Errorf("Expected 4 section workers, got %d", cfg.Concurrency.SectionWorkers)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `llm:
  provider: openai
  model: gpt-4o-mini
concurrency:
  section_workers: 2
cache:
  memory_ttl: 30m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POLY_CONCURRENCY_SECTION_WORKERS", "1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := newTestViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("Expected file values, got %s/%s", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.Concurrency.SectionWorkers != 1 {
		t.Errorf("Expected env override to 1 worker, got %d", cfg.Concurrency.SectionWorkers)
	}
	if cfg.Cache.MemoryTTL != 30*time.Minute {
		t.Errorf("Expected 30m memory TTL, got %v", cfg.Cache.MemoryTTL)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("Expected OpenAI key, got %q", cfg.LLM.APIKey)
	}
}

func TestReadDictation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "dictation.txt")
	os.WriteFile(file, []byte("renal cyst\n"), 0644)

	tests := []struct {
		name    string
		args    []string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{"argument", []string{"mild steatosis"}, "", "", "mild steatosis", false},
		{"argument wins over file", []string{"a"}, file, "", "a", false},
		{"file", nil, file, "", "renal cyst\n", false},
		{"stdin", nil, "", "bladder wall thickening", "bladder wall thickening", false},
		{"empty stdin", nil, "", "  \n", "", true},
		{"missing file", nil, "/nonexistent/dictation.txt", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDictation(tt.args, tt.file, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".poly", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("Expected default provider, got %q", cfg.LLM.Provider)
	}
	if strings.Contains(string(data), "api_key") {
		t.Error("API key must never be written to the config file")
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	emit := progressPrinter(&buf, false)

	emit(pipeline.Event{Stage: pipeline.StageCategorizing, Total: 15})
	emit(pipeline.Event{Stage: pipeline.StageSection, Section: "spleen", Outcome: synthesize.OutcomeNormal})
	emit(pipeline.Event{Stage: pipeline.StageSection, Section: "liver", Findings: 1, Outcome: synthesize.OutcomeMerged})
	emit(pipeline.Event{Stage: pipeline.StageComplete, Elapsed: 1500 * time.Millisecond})

	out := buf.String()
	if !strings.Contains(out, "Categorizing findings across 15 sections") {
		t.Errorf("Missing categorizing line: %s", out)
	}
	if strings.Contains(out, "spleen") {
		t.Error("Sections without findings are only shown in verbose mode")
	}
	if !strings.Contains(out, "liver") || !strings.Contains(out, "merged") {
		t.Errorf("Missing merged section line: %s", out)
	}
	if !strings.Contains(out, "Report complete in 1.5s") {
		t.Errorf("Missing completion line: %s", out)
	}
}
