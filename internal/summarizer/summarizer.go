// Package summarizer generates short natural-language summaries for
// symbols via an LLM collaborator and writes them back through the
// store's summary columns, together with each symbol's chunk hash.
package summarizer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/store"
)

// Summarizer turns a symbol's signature text into a short prose summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (summary string, tokens int, err error)
}

// Options mirrors the embedder's retry/backoff/fan-out contract.
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

// HTTPSummarizer posts a symbol's chunk text to a summarization service
// and retries transient failures with linear backoff.
type HTTPSummarizer struct {
	opt    Options
	client *http.Client
}

// New builds an HTTPSummarizer.
func New(opt Options) *HTTPSummarizer {
	opt.setDefaults()
	return &HTTPSummarizer{opt: opt, client: &http.Client{Timeout: opt.Timeout}}
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Tokens  int    `json:"tokens"`
}

// Summarize retries the whole request on transient failure up to
// MaxRetries, backing off attempt*1s between tries.
func (s *HTTPSummarizer) Summarize(ctx context.Context, text string) (string, int, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opt.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", 0, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		summary, tokens, err := s.summarizeOnce(ctx, text)
		if err == nil {
			return summary, tokens, nil
		}
		lastErr = err
	}
	return "", 0, fmt.Errorf("summarizer: exhausted retries: %w", lastErr)
}

func (s *HTTPSummarizer) summarizeOnce(ctx context.Context, text string) (string, int, error) {
	body, err := json.Marshal(summarizeRequest{Text: text})
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opt.URL, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return "", 0, fmt.Errorf("summarizer: non-2xx response: %d", resp.StatusCode)
	}
	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("summarizer: malformed response: %w", err)
	}
	return out.Summary, out.Tokens, nil
}

// chunkText is what gets hashed and sent to the collaborator: the
// symbol's qualified name followed by its signature.
func chunkText(sym model.Symbol) string {
	return sym.QualifiedName + "\n" + sym.Signature
}

// ChunkHash is the hash stored next to a symbol's summary. Symbols are
// picked for summarizing by an empty summary; this hash is not compared
// against the symbol's current text when picking them.
func ChunkHash(sym model.Symbol) string {
	sum := sha256.Sum256([]byte(chunkText(sym)))
	return hex.EncodeToString(sum[:])
}

// Result pairs a symbol ID with its summarization outcome.
type Result struct {
	SymbolID int64
	Err      error
}

// RunBatch fetches up to limit symbols from symbols-needing-summary and
// summarizes them with up to concurrency requests in flight, awaiting
// the whole batch before returning.
func RunBatch(ctx context.Context, s Summarizer, st store.Store, limit, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = 5
	}
	symbols, err := st.SymbolsNeedingSummary(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("summarizer: list symbols: %w", err)
	}
	results := make([]Result, len(symbols))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, symbol model.Symbol) {
			defer wg.Done()
			defer func() { <-sem }()
			summary, tokens, err := s.Summarize(ctx, chunkText(symbol))
			if err != nil {
				results[idx] = Result{SymbolID: symbol.ID, Err: err}
				return
			}
			err = st.UpdateSummary(ctx, symbol.ID, ChunkHash(symbol), summary, tokens, time.Now().UnixNano())
			results[idx] = Result{SymbolID: symbol.ID, Err: err}
		}(i, sym)
	}
	wg.Wait()
	return results, nil
}
