package domain

// Encoding is a tokenized text. IDs and AttentionMask have equal length.
type Encoding struct {
	IDs           []int64
	AttentionMask []int64
}

// Attended returns the number of positions with a non-zero mask entry.
func (e Encoding) Attended() int {
	n := 0
	for _, m := range e.AttentionMask {
		if m != 0 {
			n++
		}
	}
	return n
}

// Encoder is a pretrained transformer: a tokenizer plus a forward pass that
// yields one hidden-state row per token. Implementations must be safe for
// concurrent use.
type Encoder interface {
	Tokenize(text string) (Encoding, error)
	Forward(enc Encoding) ([][]float32, error)
}
