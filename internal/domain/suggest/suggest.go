// Package suggest proposes column mappings between a source file and a
// purchase-order template, either through the OpenAI API or a local
// keyword matcher. The conversion engine works without it.
package suggest

import (
	"context"
	"log/slog"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

// Service produces mapping suggestions. With a nil client it degrades to
// the keyword matcher.
type Service struct {
	client *Client
	logger *slog.Logger
}

// NewService creates a suggestion service. client may be nil.
func NewService(client *Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Suggest maps template target fields to source fields. AI failures are
// logged and absorbed; the keyword fallback always produces an answer.
func (s *Service) Suggest(ctx context.Context, sourceFields, targetFields []string) (*mapping.Spec, error) {
	if s.client != nil {
		spec, err := s.client.SuggestMapping(ctx, sourceFields, targetFields)
		if err == nil {
			return spec, nil
		}
		s.logger.Warn("ai mapping failed, falling back to keyword matching", "error", err)
	}
	return SimpleSuggest(sourceFields, targetFields), nil
}
