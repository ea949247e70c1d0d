package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ebay-sales-analytics/config"
	"ebay-sales-analytics/models"
	"ebay-sales-analytics/utils"
)

// Pipeline runs uploaded sources through detection, normalization and, for
// multi-file uploads, merging. Parsed sources are memoized by content.
type Pipeline struct {
	detector   *Detector
	normalizer *Normalizer
	merger     *Merger
	cache      *DatasetCache
	maxWorkers int
	logger     *utils.Logger
}

// NewPipeline wires a Pipeline from configuration.
func NewPipeline(cfg *config.Config, logger *utils.Logger) (*Pipeline, error) {
	cache, err := NewDatasetCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create cache: %w", err)
	}

	return &Pipeline{
		detector:   NewDetector(cfg.SampleRows, cfg.MinPriceHits, cfg.HeaderSentinel),
		normalizer: NewNormalizer(cfg.MarketplaceDomain, logger),
		merger:     NewMerger(logger),
		cache:      cache,
		maxWorkers: cfg.MaxConcurrency,
		logger:     logger,
	}, nil
}

// ParseSource detects and normalizes a single source. Errors wrap
// ErrStructural; row-level problems never surface here.
func (p *Pipeline) ParseSource(ctx context.Context, src models.Source) (*ParsedSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := ContentKey(src.Content)
	if cached, ok := p.cache.Get(key); ok {
		cached.Report.Name = src.Name
		cached.Report.CacheHit = true
		for _, r := range cached.Dataset {
			r.SourceName = src.Name
		}
		p.logger.Debug("[pipeline] Cache hit for %s (%s)", src.Name, key[:12])
		return cached, nil
	}

	parsed, err := p.parse(src, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}
	p.cache.Add(key, parsed)
	return parsed, nil
}

func (p *Pipeline) parse(src models.Source, key string) (*ParsedSource, error) {
	text, err := DecodeContent(src.Content)
	if err != nil {
		return nil, err
	}

	rows, skipped, err := ReadRows(text)
	if err != nil {
		return nil, err
	}
	rows = p.detector.StripHeader(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrStructural)
	}

	schema, numCols := p.detector.DetectSchema(rows)
	if schema == models.SchemaUnknown {
		return nil, fmt.Errorf("%w: found %d columns, need at least %d", ErrStructural, numCols, minColumns)
	}

	kept := make([]models.RawRow, 0, len(rows))
	for _, r := range rows {
		if len(r) != numCols {
			skipped++
			continue
		}
		kept = append(kept, r)
	}

	ds, rejected := p.normalizer.Normalize(kept, schema, src.Name)

	p.logger.Info("[pipeline] %s: schema=%s columns=%d rows=%d skipped=%d rejected=%d records=%d",
		src.Name, schema, numCols, len(rows), skipped, rejected, len(ds))

	return &ParsedSource{
		Dataset: ds,
		Report: models.SourceReport{
			Name:        src.Name,
			ContentHash: key,
			Schema:      schema.String(),
			Columns:     numCols,
			RawRows:     len(rows),
			Skipped:     skipped,
			Rejected:    rejected,
			Records:     len(ds),
		},
	}, nil
}

// Upload processes one upload event. A failing source is reported and left
// out; the others still go through. Two or more sources are merged. The
// result is returned alongside ErrNoValidData when nothing usable remained.
func (p *Pipeline) Upload(ctx context.Context, sources []models.Source) (*models.UploadResult, error) {
	res := &models.UploadResult{UploadID: uuid.NewString()}
	if len(sources) == 0 {
		return res, fmt.Errorf("%w: no sources uploaded", ErrNoValidData)
	}

	log := p.logger.With("upload", res.UploadID)

	parsed := make([]*ParsedSource, len(sources))
	errs := make([]error, len(sources))
	utils.NewWorkerPool(p.maxWorkers).ForEach(len(sources), func(i int) {
		parsed[i], errs[i] = p.ParseSource(ctx, sources[i])
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(sources))
	var datasets []models.Dataset
	for i, src := range sources {
		keys = append(keys, ContentKey(src.Content))
		if errs[i] != nil {
			log.Error("[pipeline] Could not parse %s: %v", src.Name, errs[i])
			res.Sources = append(res.Sources, models.SourceReport{
				Name:        src.Name,
				ContentHash: keys[i],
				Error:       errs[i].Error(),
			})
			continue
		}
		res.Sources = append(res.Sources, parsed[i].Report)
		datasets = append(datasets, parsed[i].Dataset)
	}

	if evicted := p.cache.Retain(keys); evicted > 0 {
		log.Debug("[pipeline] Evicted %d stale cache entries", evicted)
	}

	switch {
	case len(sources) > 1:
		res.Dataset = p.merger.Merge(datasets...)
		res.Merged = true
	case len(datasets) == 1:
		res.Dataset = datasets[0]
	}

	if len(res.Dataset) == 0 {
		return res, ErrNoValidData
	}

	log.Info("[pipeline] Upload complete: %d sources → %d records", len(sources), len(res.Dataset))
	return res, nil
}

// Reset drops every memoized source.
func (p *Pipeline) Reset() {
	p.cache.Purge()
}

// FilterDomain re-applies the marketplace domain rule to a dataset.
func (p *Pipeline) FilterDomain(ds models.Dataset) models.Dataset {
	return p.normalizer.FilterDomain(ds)
}
