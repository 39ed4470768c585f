package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIOptions contains configuration options for the OpenAI encoder.
type OpenAIOptions struct {
	// Model is the embedding model name.
	Model string

	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL string
}

// DefaultOpenAIOptions contains the default configuration options for the OpenAI encoder.
var DefaultOpenAIOptions = OpenAIOptions{
	Model: string(openai.SmallEmbedding3),
}

// OpenAIEncoder embeds texts through the OpenAI embeddings API or any
// compatible endpoint.
type OpenAIEncoder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEncoder creates a new OpenAI encoder.
func NewOpenAIEncoder(apiKey string, optFns ...func(o *OpenAIOptions)) *OpenAIEncoder {
	opts := DefaultOpenAIOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAIEncoder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(opts.Model),
	}
}

// Encode implements Encoder. Results are placed by the index the API
// reports, so reordering by the server cannot misalign vectors.
func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, &ErrCountMismatch{Texts: len(texts), Vectors: len(resp.Data)}
	}

	out := make([][]float32, len(texts))

	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding: openai returned out-of-range index %d", d.Index)
		}

		v := make([]float32, len(d.Embedding))
		copy(v, d.Embedding)
		out[d.Index] = v
	}

	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embedding: openai response missing vector for input %d", i)
		}
	}

	return out, nil
}
