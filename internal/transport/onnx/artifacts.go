package onnx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names expected in the model directory.
const (
	ModelFile     = "model.onnx"
	TokenizerFile = "tokenizer.json"
	ConfigFile    = "config.json"
)

// ErrMissingArtifact signals that a required model artifact is absent or unreadable.
var ErrMissingArtifact = errors.New("missing model artifact")

// artifacts are the resolved paths of the three model files.
type artifacts struct {
	model     string
	tokenizer string
	config    string
}

// modelConfig is the subset of the transformer config.json the encoder needs.
type modelConfig struct {
	HiddenSize            int `json:"hidden_size"`
	MaxPositionEmbeddings int `json:"max_position_embeddings"`
}

// locateArtifacts checks that every artifact exists as a regular file under dir.
func locateArtifacts(dir string) (artifacts, error) {
	a := artifacts{
		model:     filepath.Join(dir, ModelFile),
		tokenizer: filepath.Join(dir, TokenizerFile),
		config:    filepath.Join(dir, ConfigFile),
	}
	for _, p := range []string{a.model, a.tokenizer, a.config} {
		info, err := os.Stat(p)
		if err != nil {
			return artifacts{}, fmt.Errorf("%w: %s: %w", ErrMissingArtifact, p, err)
		}
		if info.IsDir() {
			return artifacts{}, fmt.Errorf("%w: %s is a directory", ErrMissingArtifact, p)
		}
	}
	return a, nil
}

// readModelConfig parses config.json and checks the fields the encoder relies on.
func readModelConfig(path string) (modelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return modelConfig{}, fmt.Errorf("%w: %s: %w", ErrMissingArtifact, path, err)
	}
	var cfg modelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return modelConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.HiddenSize <= 0 {
		return modelConfig{}, fmt.Errorf("%s: hidden_size must be positive, got %d", path, cfg.HiddenSize)
	}
	if cfg.MaxPositionEmbeddings <= 0 {
		return modelConfig{}, fmt.Errorf("%s: max_position_embeddings must be positive, got %d",
			path, cfg.MaxPositionEmbeddings)
	}
	return cfg, nil
}
