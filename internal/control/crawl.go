package control

import (
	"context"

	"github.com/tarslinks/linkhive/internal/jobs"
	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

// Crawl starts a crawl job over the URLs selected by selector,
// fetching each with Crawler and persisting the outcome via
// Store.CrawlUpdate. Per-URL crawl failures are absorbed into the
// job's error counter, not returned to the caller; only a failure to
// list candidate URLs or a Store failure fails Start itself.
func (s *Surface) Crawl(ctx context.Context, selector models.ListSelector, maxLinksPerPage int) error {
	urls, err := s.Store.ListToCrawl(ctx, selector)
	if err != nil {
		return err
	}

	return s.Jobs.Start(ctx, models.JobKindCrawl, urls, func(ctx context.Context, url string) jobs.ItemResult {
		result, err := s.Crawler.Fetch(ctx, url, maxLinksPerPage)
		if err != nil {
			errMsg := err.Error()
			_, _, updateErr := s.Store.CrawlUpdate(ctx, url, store.CrawlUpdateInput{
				CrawlError: &errMsg,
			})
			if updateErr != nil {
				s.Logger.Warn().Err(updateErr).Str("url", url).Msg("failed to persist crawl error")
			}
			return jobs.ItemResult{Err: err}
		}

		title := result.Title
		description := result.Description
		httpStatus := result.HTTPStatus
		_, _, err = s.Store.CrawlUpdate(ctx, url, store.CrawlUpdateInput{
			Title:       &title,
			Description: &description,
			Content:     result.Content,
			HasContent:  true,
			HTTPStatus:  &httpStatus,
		})
		if err != nil {
			return jobs.ItemResult{Err: err}
		}
		return jobs.ItemResult{}
	}, nil)
}

// CrawlStatus returns the crawl job's current progress snapshot.
func (s *Surface) CrawlStatus() models.Progress {
	return s.Jobs.Status(models.JobKindCrawl)
}

// VectorEmbed starts an embed job over every searchable document (not
// hidden, http_status below 400 or never fetched) whose embedding is
// pending (never computed, or invalidated by a content change),
// computing and persisting a fresh embedding for each. Hidden documents
// and documents with http_status 400 or above are not embedded.
func (s *Surface) VectorEmbed(ctx context.Context) error {
	docs, err := s.Store.SearchableDocuments(ctx)
	if err != nil {
		return err
	}

	var ids []string
	pending := make(map[string]string, len(docs))
	for _, d := range docs {
		if d.Embedding != nil {
			continue
		}
		ids = append(ids, d.ID)
		pending[d.ID] = d.SearchText
	}

	err = s.Jobs.Start(ctx, models.JobKindEmbed, ids, func(ctx context.Context, id string) jobs.ItemResult {
		searchText := pending[id]
		vector, embedErr := s.Embedder.Embed(ctx, searchText)
		if embedErr != nil {
			return jobs.ItemResult{Err: embedErr}
		}
		if _, err := s.Store.SetEmbedding(ctx, id, searchText, vector); err != nil {
			return jobs.ItemResult{Err: err}
		}
		return jobs.ItemResult{}
	}, func(ctx context.Context) {
		if err := s.Dense.Rebuild(ctx); err != nil {
			s.Logger.Warn().Err(err).Msg("failed to rebuild dense index after embed job")
		}
	})
	if err != nil {
		return err
	}
	return nil
}

// EmbedStatus returns the embed job's current progress snapshot.
func (s *Surface) EmbedStatus() models.Progress {
	return s.Jobs.Status(models.JobKindEmbed)
}
