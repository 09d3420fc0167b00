// Package pipeline implements capture processing: fetching source content,
// extracting or transcribing it, and committing the result to the item.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/inlet-labs/inlet/internal/domain"
	"github.com/inlet-labs/inlet/internal/extract"
	"github.com/inlet-labs/inlet/internal/service"
	"github.com/inlet-labs/inlet/internal/telemetry"
)

const voiceMemoPlaceholder = "Voice memo transcription placeholder"

// Job identifies one unit of processing work.
type Job struct {
	ItemID     string
	SourceType domain.SourceType
}

// Result reports the outcome of processing a job.
type Result struct {
	Status  string
	ItemID  string
	Message string
}

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// PageFetcher downloads an HTML document.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// ContentExtractor parses HTML into item content and metadata.
type ContentExtractor interface {
	Extract(pageURL string, html []byte) (*extract.Result, error)
}

// ImageHarvester stores a page's images and returns their asset records.
type ImageHarvester interface {
	Harvest(ctx context.Context, itemID, pageURL string, refs []string) ([]*domain.ImageAsset, error)
}

// AudioTranscriber produces a transcript for a media URL.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, sourceURL string) (string, error)
}

// Processor drives an item through its lifecycle. Every run ends with the
// item in a terminal state: ready on success, error with a message on any
// failure.
type Processor struct {
	items       service.ItemRepositoryInterface
	tx          service.TxRunner
	fetcher     PageFetcher
	extractor   ContentExtractor
	harvester   ImageHarvester
	transcriber AudioTranscriber
}

func NewProcessor(
	items service.ItemRepositoryInterface,
	tx service.TxRunner,
	fetcher PageFetcher,
	extractor ContentExtractor,
	harvester ImageHarvester,
	transcriber AudioTranscriber,
) *Processor {
	return &Processor{
		items:       items,
		tx:          tx,
		fetcher:     fetcher,
		extractor:   extractor,
		harvester:   harvester,
		transcriber: transcriber,
	}
}

// Process runs one job to completion. A missing item produces an error
// result without any writes; any step failure records the error on the
// item before returning.
func (p *Processor) Process(ctx context.Context, job Job) Result {
	ctx, span := telemetry.StartSpan(ctx, "Processor.Process", telemetry.SpanAttributes{
		ItemID:     job.ItemID,
		SourceType: string(job.SourceType),
		Operation:  "process",
	})
	defer span.End()

	item, err := p.items.GetByID(ctx, job.ItemID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return Result{Status: ResultError, ItemID: job.ItemID, Message: "item not found"}
		}
		span.SetError(err)
		return Result{Status: ResultError, ItemID: job.ItemID, Message: err.Error()}
	}

	if err := p.items.MarkProcessing(ctx, item.ID); err != nil {
		// The item already left pending, either through a concurrent run
		// or an operator action. Its state is not ours to overwrite.
		return Result{Status: ResultError, ItemID: item.ID, Message: "item is not pending"}
	}

	var procErr error
	switch item.SourceType {
	case domain.SourceTypeWebpage:
		procErr = p.processWebpage(ctx, item)
	case domain.SourceTypeVideo, domain.SourceTypeAudio:
		procErr = p.processMedia(ctx, item)
	case domain.SourceTypeVoiceMemo:
		procErr = p.processVoiceMemo(ctx, item)
	case domain.SourceTypeNote:
		procErr = p.processNote(ctx, item)
	default:
		procErr = fmt.Errorf("unsupported source type: %s", item.SourceType)
	}

	if procErr != nil {
		span.SetError(procErr)
		if err := p.items.MarkError(ctx, item.ID, procErr.Error()); err != nil {
			log.Printf("failed to mark item %s as errored: %v", item.ID, err)
		}
		return Result{Status: ResultError, ItemID: item.ID, Message: procErr.Error()}
	}

	return Result{Status: ResultSuccess, ItemID: item.ID, Message: "processed successfully"}
}

// processWebpage fetches and extracts the page, harvests its images, and
// commits content plus asset records in one transaction.
func (p *Processor) processWebpage(ctx context.Context, item *domain.KnowledgeItem) error {
	html, err := p.fetcher.FetchPage(ctx, item.SourceURL)
	if err != nil {
		return err
	}

	res, err := p.extractor.Extract(item.SourceURL, html)
	if err != nil {
		return err
	}

	assets, err := p.harvester.Harvest(ctx, item.ID, item.SourceURL, res.ImageRefs)
	if err != nil {
		return err
	}

	item.Title = res.Title
	item.Author = res.Author
	item.PublishedAt = res.PublishedAt
	item.TextContent = res.TextContent
	item.HTMLContent = res.HTMLContent

	return p.tx.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Items().CompleteProcessing(ctx, item); err != nil {
			return err
		}
		for _, asset := range assets {
			if err := repos.Assets().Create(ctx, asset); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Processor) processMedia(ctx context.Context, item *domain.KnowledgeItem) error {
	transcript, err := p.transcriber.Transcribe(ctx, item.SourceURL)
	if err != nil {
		return err
	}

	item.TextContent = transcript
	return p.items.CompleteProcessing(ctx, item)
}

func (p *Processor) processVoiceMemo(ctx context.Context, item *domain.KnowledgeItem) error {
	item.TextContent = voiceMemoPlaceholder
	return p.items.CompleteProcessing(ctx, item)
}

// processNote completes immediately: note content is captured at intake.
func (p *Processor) processNote(ctx context.Context, item *domain.KnowledgeItem) error {
	return p.items.CompleteProcessing(ctx, item)
}
