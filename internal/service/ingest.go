package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
	"github.com/Aman-CERP/linkmap/internal/linkextract"
	"github.com/Aman-CERP/linkmap/internal/validation"
)

// maxRecordSize bounds one JSON Lines record; pages with inline HTML can be
// large.
const maxRecordSize = 16 << 20

// Record is one crawled page as read from a JSON Lines file.
type Record struct {
	ID        string    `json:"id" validate:"required"`
	URL       string    `json:"url" validate:"required"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	// HTML, when present, is parsed for outgoing links.
	HTML string `json:"html,omitempty"`
}

// IngestOptions controls Ingest.
type IngestOptions struct {
	// Embed computes embeddings for records that carry none.
	Embed bool
	// ExternalLinks also stores links leaving the domain.
	ExternalLinks bool
	Extract       linkextract.Options
}

// DefaultIngestOptions returns the ingest defaults.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{Extract: linkextract.DefaultOptions()}
}

// IngestResult reports what Ingest stored.
type IngestResult struct {
	Domain   string `json:"domain"`
	Items    int    `json:"items"`
	Embedded int    `json:"embedded"`
	Pages    int    `json:"pages_with_html"`
	Links    int    `json:"links"`
}

// ReadRecords decodes JSON Lines records. Blank lines are skipped; a
// malformed line fails with its line number.
func ReadRecords(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	records := make([]Record, 0)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, lmerrors.New(lmerrors.ErrCodeInputMalformed,
				fmt.Sprintf("line %d: malformed record", line), err).
				WithDetail("line", fmt.Sprint(line))
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, lmerrors.New(lmerrors.ErrCodeInputMalformed, "failed to read records", err)
	}
	return records, nil
}

// Ingest stores records as items of domain. Existing items are updated in
// place and keep their cluster id; an existing embedding is kept when the
// record has none. Records with HTML replace the stored outgoing links of
// their URL. Items and links are written in one transaction.
func (s *Service) Ingest(ctx context.Context, domain string, records []Record, opts IngestOptions) (res *IngestResult, err error) {
	domain, finish, err := s.begin(OpIngest, domain)
	if err != nil {
		return nil, err
	}
	defer func() {
		if res != nil {
			finish(err, slog.Int("items", res.Items), slog.Int("embedded", res.Embedded), slog.Int("links", res.Links))
			return
		}
		finish(err)
	}()

	for i := range records {
		if err := validation.Struct(records[i]); err != nil {
			return nil, lmerrors.Wrap(lmerrors.ErrCodeInputMalformed, err).
				WithDetail("record", fmt.Sprint(i+1))
		}
	}

	release, err := s.locker.Lock(ctx, domain)
	if err != nil {
		return nil, err
	}
	defer release()

	res = &IngestResult{Domain: domain}
	items := make([]corpus.Item, len(records))
	for i, rec := range records {
		items[i] = corpus.Item{
			ID:        rec.ID,
			URL:       rec.URL,
			Title:     rec.Title,
			Content:   rec.Content,
			Embedding: rec.Embedding,
		}
	}

	// Links are extracted up front so a malformed page fails the batch
	// before anything is written.
	linksBySource := make(map[string][]corpus.Link)
	for _, rec := range records {
		if rec.HTML == "" {
			continue
		}
		found, err := linkextract.Extract(rec.URL, strings.NewReader(rec.HTML), opts.Extract)
		if err != nil {
			return nil, lmerrors.New(lmerrors.ErrCodeInputMalformed,
				fmt.Sprintf("failed to parse html of %s", rec.URL), err)
		}
		pageLinks := make([]corpus.Link, 0, len(found))
		for _, l := range found {
			if !l.Internal && !opts.ExternalLinks {
				continue
			}
			pageLinks = append(pageLinks, corpus.Link{
				SourceURL: rec.URL,
				TargetURL: l.Href,
				Anchor:    l.Anchor,
				Nofollow:  l.Nofollow,
			})
		}
		linksBySource[rec.URL] = pageLinks
	}

	if opts.Embed {
		n, err := s.embedMissing(ctx, items)
		if err != nil {
			return nil, err
		}
		res.Embedded = n
	}

	stored, err := s.store.IngestPages(ctx, domain, items, linksBySource)
	if err != nil {
		return nil, err
	}
	res.Items = stored
	s.metrics.AddItems(OpIngest, stored)
	for _, pageLinks := range linksBySource {
		res.Pages++
		res.Links += len(pageLinks)
	}

	return res, nil
}

// embedMissing fills in embeddings for items without one, in a single
// batch, and returns how many it computed.
func (s *Service) embedMissing(ctx context.Context, items []corpus.Item) (int, error) {
	var idx []int
	var texts []string
	for i, it := range items {
		if it.HasEmbedding() {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, embeddingText(it))
	}
	if len(idx) == 0 {
		return 0, nil
	}
	if s.embedder == nil {
		return 0, lmerrors.ConfigError("embedding requested but no embedder is configured", nil).
			WithSuggestion("Set embeddings.provider in the config file")
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vecs) != len(idx) {
		return 0, lmerrors.New(lmerrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(idx)), nil)
	}
	for j, i := range idx {
		items[i].Embedding = vecs[j]
	}

	s.logger.Debug("embeddings_computed",
		slog.String("model", s.embedder.ModelName()),
		slog.Int("count", len(idx)))
	return len(idx), nil
}

func embeddingText(it corpus.Item) string {
	return strings.TrimSpace(it.Title + "\n\n" + it.Content)
}
