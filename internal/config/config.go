// Package config provides the engine's tunables, loadable from a YAML file
// with environment-variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RAGConfig holds every tunable the retrieval and fusion pipeline reads.
// All defaults are fixed by the engine's contract; see Default.
type RAGConfig struct {
	DenseDim               int     `yaml:"dense_dim" json:"dense_dim"`
	BM25TopK               int     `yaml:"bm25_top_k" json:"bm25_top_k"`
	DenseTopK              int     `yaml:"dense_top_k" json:"dense_top_k"`
	ImageTopK              int     `yaml:"image_top_k" json:"image_top_k"`
	RRFK                   int     `yaml:"rrf_k" json:"rrf_k"`
	SparseWeight           float64 `yaml:"sparse_weight" json:"sparse_weight"`
	DenseWeight            float64 `yaml:"dense_weight" json:"dense_weight"`
	ImageWeight            float64 `yaml:"image_weight" json:"image_weight"`
	RRFWeight              float64 `yaml:"rrf_weight" json:"rrf_weight"`
	RerankTopM             int     `yaml:"rerank_top_m" json:"rerank_top_m"`
	FinalTopN              int     `yaml:"final_top_n" json:"final_top_n"`
	NearDuplicateThreshold float64 `yaml:"near_duplicate_threshold" json:"near_duplicate_threshold"`
	DuplicateThreshold     float64 `yaml:"duplicate_threshold" json:"duplicate_threshold"`
}

// Default returns the engine's fixed default configuration.
func Default() RAGConfig {
	return RAGConfig{
		DenseDim:               512,
		BM25TopK:               300,
		DenseTopK:              300,
		ImageTopK:              300,
		RRFK:                   60,
		SparseWeight:           0.45,
		DenseWeight:            0.45,
		ImageWeight:            0.10,
		RRFWeight:              0.15,
		RerankTopM:             200,
		FinalTopN:              20,
		NearDuplicateThreshold: 0.85,
		DuplicateThreshold:     0.95,
	}
}

// Each environment variable below overrides the RAGConfig field of the
// same name (see applyEnvOverrides), layered over the YAML base.
const (
	envDenseDim               = "MCQRAG_DENSE_DIM"
	envBM25TopK               = "MCQRAG_BM25_TOP_K"
	envDenseTopK              = "MCQRAG_DENSE_TOP_K"
	envImageTopK              = "MCQRAG_IMAGE_TOP_K"
	envRRFK                   = "MCQRAG_RRF_K"
	envSparseWeight           = "MCQRAG_SPARSE_WEIGHT"
	envDenseWeight            = "MCQRAG_DENSE_WEIGHT"
	envImageWeight            = "MCQRAG_IMAGE_WEIGHT"
	envRRFWeight              = "MCQRAG_RRF_WEIGHT"
	envRerankTopM             = "MCQRAG_RERANK_TOP_M"
	envFinalTopN              = "MCQRAG_FINAL_TOP_N"
	envNearDuplicateThreshold = "MCQRAG_NEAR_DUPLICATE_THRESHOLD"
	envDuplicateThreshold     = "MCQRAG_DUPLICATE_THRESHOLD"
)

// Load reads a YAML config file at path, starting from Default for any
// field the file omits, then applies environment-variable overrides. A
// missing file is not an error: Load returns Default with env overrides
// applied.
func Load(path string) (RAGConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *RAGConfig) {
	intVar(envDenseDim, &cfg.DenseDim)
	intVar(envBM25TopK, &cfg.BM25TopK)
	intVar(envDenseTopK, &cfg.DenseTopK)
	intVar(envImageTopK, &cfg.ImageTopK)
	intVar(envRRFK, &cfg.RRFK)
	intVar(envRerankTopM, &cfg.RerankTopM)
	intVar(envFinalTopN, &cfg.FinalTopN)

	floatVar(envSparseWeight, &cfg.SparseWeight)
	floatVar(envDenseWeight, &cfg.DenseWeight)
	floatVar(envImageWeight, &cfg.ImageWeight)
	floatVar(envRRFWeight, &cfg.RRFWeight)
	floatVar(envNearDuplicateThreshold, &cfg.NearDuplicateThreshold)
	floatVar(envDuplicateThreshold, &cfg.DuplicateThreshold)
}

func intVar(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func floatVar(name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg RAGConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
