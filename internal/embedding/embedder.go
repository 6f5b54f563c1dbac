// Package embedding exposes the embedding model behind an initialize-once handle.
package embedding

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"resumatch/internal/domain"
)

// Factory constructs the embedding model. It runs at most once per Provider.
type Factory func() (domain.Embedder, error)

// Provider lazily builds the embedder on first use and hands the same
// instance to every caller afterwards. A construction error is sticky.
type Provider struct {
	factory Factory
	log     *zap.Logger

	once     sync.Once
	embedder domain.Embedder
	err      error
}

func NewProvider(factory Factory, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{factory: factory, log: log}
}

// Get returns the embedder, constructing it on the first call.
func (p *Provider) Get() (domain.Embedder, error) {
	p.once.Do(func() {
		p.embedder, p.err = p.factory()
		if p.err != nil {
			p.err = fmt.Errorf("load embedding model: %w", p.err)
			return
		}
		p.log.Info("embedding model loaded", zap.String("embedder", p.embedder.Name()))
	})
	return p.embedder, p.err
}

// EmbedOne embeds a single text.
func (p *Provider) EmbedOne(text string) ([]float64, error) {
	e, err := p.Get()
	if err != nil {
		return nil, err
	}
	return e.Embed(text)
}

// EmbedMany embeds texts in order, one vector per input.
func (p *Provider) EmbedMany(texts []string) ([][]float64, error) {
	e, err := p.Get()
	if err != nil {
		return nil, err
	}
	vecs, err := e.EmbedBatch(texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), len(texts))
	}
	return vecs, nil
}
