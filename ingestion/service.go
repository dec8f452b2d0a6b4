package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/retrieval"
)

// Service walks document trees, extracts text, and hands the results to the
// retriever for indexing.
type Service struct {
	retriever *retrieval.Retriever
	logger    zerolog.Logger
}

// Report summarises an ingestion run. Unreadable files are skipped, not fatal.
type Report struct {
	Documents int
	Chunks    int
	Skipped   []string
}

func NewService(retriever *retrieval.Retriever, logger zerolog.Logger) *Service {
	return &Service{retriever: retriever, logger: logger}
}

// IngestDirectory parses every supported file under dir and rebuilds the
// index from the result. Files that cannot be read or parsed are reported in
// Report.Skipped and do not abort the rest of the batch.
func (s *Service) IngestDirectory(ctx context.Context, dir string) (Report, error) {
	if _, err := os.Stat(dir); err != nil {
		return Report{}, fmt.Errorf("data directory: %w", err)
	}

	paths := make([]string, 0)
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if DetectFormat(path) != FormatUnknown {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return Report{}, fmt.Errorf("walk data directory: %w", err)
	}

	if len(paths) == 0 {
		s.logger.Warn().Str("dir", dir).Msg("no supported documents found")
		return Report{}, nil
	}

	report := Report{}
	docs := make([]retrieval.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("unreadable document, skipping")
			report.Skipped = append(report.Skipped, path)
			continue
		}

		parsed, err := Parse(Payload{Path: path, Data: data})
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("unreadable document, skipping")
			report.Skipped = append(report.Skipped, path)
			continue
		}

		docs = append(docs, retrieval.Document{
			ID:    uuid.New().String(),
			Title: parsed.Title,
			Text:  parsed.Text,
		})
	}

	if len(docs) == 0 {
		return report, fmt.Errorf("no text could be extracted from %s", dir)
	}

	chunks, err := s.retriever.Rebuild(ctx, docs)
	if err != nil {
		return report, fmt.Errorf("index documents: %w", err)
	}

	report.Documents = len(docs)
	report.Chunks = chunks
	s.logger.Info().Int("documents", report.Documents).Int("chunks", report.Chunks).Int("skipped", len(report.Skipped)).Msg("ingestion complete")
	return report, nil
}

// IngestPayloads indexes already-loaded documents (e.g. HTTP uploads) by
// extending the current index rather than rebuilding it.
func (s *Service) IngestPayloads(ctx context.Context, payloads []Payload) (Report, error) {
	report := Report{}
	docs := make([]retrieval.Document, 0, len(payloads))
	for _, payload := range payloads {
		parsed, err := Parse(payload)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", payload.Path).Msg("unreadable document, skipping")
			report.Skipped = append(report.Skipped, payload.Path)
			continue
		}
		docs = append(docs, retrieval.Document{
			ID:    uuid.New().String(),
			Title: parsed.Title,
			Text:  parsed.Text,
		})
	}

	if len(docs) == 0 {
		return report, fmt.Errorf("no text could be extracted from the uploaded documents")
	}

	chunks, err := s.retriever.Index(ctx, docs)
	if err != nil {
		return report, fmt.Errorf("index documents: %w", err)
	}

	report.Documents = len(docs)
	report.Chunks = chunks
	return report, nil
}
