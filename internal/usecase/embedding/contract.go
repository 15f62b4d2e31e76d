package embedding

import "github.com/kailas-cloud/servicesearch/internal/domain"

// Encoder is the consumer interface for the local transformer (ISP).
type Encoder interface {
	Tokenize(text string) (domain.Encoding, error)
	Forward(enc domain.Encoding) ([][]float32, error)
}
