// Package embedder generates symbol embeddings via an HTTP collaborator
// and writes them into the store, keyed by (symbol, model) and gated on
// the symbol's current chunk hash.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
)

// Embedder turns text into vectors. HTTPEmbedder is the production
// implementation; tests may stub this interface.
type Embedder interface {
	ModelName() string
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options configures retry/backoff and fan-out, per the concurrency
// model's external-collaborator contract.
type Options struct {
	URL         string
	Timeout     time.Duration // default 30s
	MaxRetries  int           // default 3
	Concurrency int           // default 5
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
}

// HTTPEmbedder posts batches of text to an embedding service and returns
// one unit-length vector per input, retrying transient failures with
// linear backoff (attempt i waits i seconds).
type HTTPEmbedder struct {
	opt    Options
	client *http.Client
	model  string
}

// New builds an HTTPEmbedder for the named model.
func New(opt Options, modelName string) *HTTPEmbedder {
	opt.setDefaults()
	return &HTTPEmbedder{
		opt:    opt,
		client: &http.Client{Timeout: opt.Timeout},
		model:  modelName,
	}
}

func (e *HTTPEmbedder) ModelName() string { return e.model }

type embedRequest struct {
	Sentences []string `json:"sentences"`
}

// EmbedTexts retries the whole batch request on transient failure
// (non-2xx, timeout, malformed body) up to MaxRetries, backing off
// attempt*1s between tries.
func (e *HTTPEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opt.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		vecs, err := e.embedOnce(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedder: exhausted retries: %w", lastErr)
}

func (e *HTTPEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Sentences: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.opt.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedder: non-2xx response: %d", resp.StatusCode)
	}
	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("embedder: malformed response: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder: malformed response: %d vectors for %d inputs", len(vecs), len(texts))
	}
	for _, v := range vecs {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum > 0 {
			inv := float32(1 / math.Sqrt(sum))
			for i := range v {
				v[i] *= inv
			}
		}
	}
	return vecs, nil
}

// Job is one embedding request: a symbol identifier paired with the text
// to embed (the CLI's embed command sends the symbol's qualified name
// followed by its signature).
type Job struct {
	SymbolID  int64
	ChunkHash string
	Text      string
}

// Result pairs a Job with its outcome; Err is set when the batch
// collaborator call failed after exhausting retries.
type Result struct {
	Job Job
	Err error
}

// RunBatch fans jobs out across up to Concurrency HTTP requests in
// flight, awaiting the whole batch before returning.
func RunBatch(ctx context.Context, e Embedder, st store.Store, jobs []Job, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 5
	}
	results := make([]Result, len(jobs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			vecs, err := e.EmbedTexts(ctx, []string{job.Text})
			if err != nil {
				results[idx] = Result{Job: job, Err: err}
				return
			}
			payload, err := storesqlite.PackEmbedding(vecs[0])
			if err != nil {
				results[idx] = Result{Job: job, Err: err}
				return
			}
			now := time.Now().UnixNano()
			err = st.UpsertEmbedding(ctx, model.Embedding{
				Symbol:    job.SymbolID,
				Model:     e.ModelName(),
				Dimension: len(vecs[0]),
				Payload:   payload,
				ChunkHash: job.ChunkHash,
				CreatedAt: now,
				UpdatedAt: now,
			})
			results[idx] = Result{Job: job, Err: err}
		}(i, j)
	}
	wg.Wait()
	return results
}
