// Package onnx runs a pretrained sentence encoder locally through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/servicesearch/internal/domain"
)

const (
	inputIDs     = "input_ids"
	inputMask    = "attention_mask"
	inputTypeIDs = "token_type_ids"
	outputHidden = "last_hidden_state"
)

var errClosed = errors.New("encoder closed")

// envMu guards the process-wide ONNX Runtime environment.
var envMu sync.Mutex

// Config holds the local encoder settings.
type Config struct {
	// ModelDir contains model.onnx, tokenizer.json and config.json.
	ModelDir string
	// SharedLibraryPath points at libonnxruntime. Empty uses the runtime's default lookup.
	SharedLibraryPath string
	// MaxLength caps the token sequence. 0 uses max_position_embeddings.
	MaxLength int
	Logger    *zap.Logger
}

// Encoder implements domain.Encoder with a sugarme tokenizer and an ONNX session.
// The session is shared by concurrent forward passes.
type Encoder struct {
	tkMu       sync.Mutex
	tk         *tokenizer.Tokenizer
	session    *ort.DynamicAdvancedSession
	tokenTypes bool
	hiddenSize int
	maxLength  int
	closed     atomic.Bool
	logger     *zap.Logger
}

var _ domain.Encoder = (*Encoder)(nil)

// NewEncoder loads the three artifacts and opens an inference session.
// A missing artifact is reported as ErrMissingArtifact.
func NewEncoder(cfg Config) (*Encoder, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	paths, err := locateArtifacts(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	mc, err := readModelConfig(paths.config)
	if err != nil {
		return nil, err
	}

	tk, err := pretrained.FromFile(paths.tokenizer)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", paths.tokenizer, err)
	}

	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	inputs, _, err := ort.GetInputOutputInfo(paths.model)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", paths.model, err)
	}
	inputNames := []string{inputIDs, inputMask}
	tokenTypes := false
	for _, in := range inputs {
		if in.Name == inputTypeIDs {
			tokenTypes = true
			inputNames = append(inputNames, inputTypeIDs)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(paths.model, inputNames, []string{outputHidden}, nil)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", paths.model, err)
	}

	maxLength := mc.MaxPositionEmbeddings
	if cfg.MaxLength > 0 && cfg.MaxLength < maxLength {
		maxLength = cfg.MaxLength
	}

	log.Info("Encoder loaded",
		zap.String("model_dir", cfg.ModelDir),
		zap.Int("hidden_size", mc.HiddenSize),
		zap.Int("max_length", maxLength),
		zap.Bool("token_type_ids", tokenTypes),
	)

	return &Encoder{
		tk:         tk,
		session:    session,
		tokenTypes: tokenTypes,
		hiddenSize: mc.HiddenSize,
		maxLength:  maxLength,
		logger:     log,
	}, nil
}

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// Dimensions returns the hidden size of the model.
func (e *Encoder) Dimensions() int { return e.hiddenSize }

// Tokenize encodes text with special tokens and truncates to the model's maximum length.
func (e *Encoder) Tokenize(text string) (domain.Encoding, error) {
	e.tkMu.Lock()
	en, err := e.tk.EncodeSingle(text, true)
	e.tkMu.Unlock()
	if err != nil {
		return domain.Encoding{}, fmt.Errorf("encode: %w", err)
	}
	return toEncoding(en.Ids, en.AttentionMask, e.maxLength)
}

// Forward returns one hidden-state row per token.
func (e *Encoder) Forward(enc domain.Encoding) ([][]float32, error) {
	if e.closed.Load() {
		return nil, errClosed
	}
	seqLen := len(enc.IDs)
	if seqLen == 0 || seqLen != len(enc.AttentionMask) {
		return nil, fmt.Errorf("bad encoding: %d ids, %d mask entries", seqLen, len(enc.AttentionMask))
	}

	shape := ort.NewShape(1, int64(seqLen))
	ids, err := ort.NewTensor(shape, enc.IDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer ids.Destroy() //nolint:errcheck // best-effort release of native memory

	mask, err := ort.NewTensor(shape, enc.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer mask.Destroy() //nolint:errcheck // best-effort release of native memory

	inputs := []ort.Value{ids, mask}
	if e.tokenTypes {
		types, err := ort.NewTensor(shape, make([]int64, seqLen))
		if err != nil {
			return nil, fmt.Errorf("token_type_ids tensor: %w", err)
		}
		defer types.Destroy() //nolint:errcheck // best-effort release of native memory
		inputs = append(inputs, types)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seqLen), int64(e.hiddenSize)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy() //nolint:errcheck // best-effort release of native memory

	if err := e.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	return splitRows(out.GetData(), seqLen, e.hiddenSize)
}

// HealthCheck reports whether the session is still usable.
func (e *Encoder) HealthCheck(_ context.Context) error {
	if e.closed.Load() {
		return errClosed
	}
	return nil
}

// Close destroys the inference session. Safe to call more than once.
func (e *Encoder) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := e.session.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// toEncoding converts tokenizer output to int64 and truncates to maxLength,
// keeping the final special token.
func toEncoding(ids, mask []int, maxLength int) (domain.Encoding, error) {
	if len(ids) != len(mask) {
		return domain.Encoding{}, fmt.Errorf("tokenizer returned %d ids and %d mask entries", len(ids), len(mask))
	}
	n := len(ids)
	truncated := maxLength > 0 && n > maxLength
	if truncated {
		n = maxLength
	}

	enc := domain.Encoding{
		IDs:           make([]int64, n),
		AttentionMask: make([]int64, n),
	}
	for i := range n {
		enc.IDs[i] = int64(ids[i])
		enc.AttentionMask[i] = int64(mask[i])
	}
	if truncated && n > 1 {
		enc.IDs[n-1] = int64(ids[len(ids)-1])
		enc.AttentionMask[n-1] = int64(mask[len(mask)-1])
	}
	return enc, nil
}

// splitRows reshapes a flat (1, L, D) tensor into L rows of width D.
func splitRows(data []float32, seqLen, width int) ([][]float32, error) {
	if len(data) != seqLen*width {
		return nil, fmt.Errorf("output has %d values, expected %d x %d", len(data), seqLen, width)
	}
	rows := make([][]float32, seqLen)
	for i := range rows {
		row := make([]float32, width)
		copy(row, data[i*width:(i+1)*width])
		rows[i] = row
	}
	return rows, nil
}
