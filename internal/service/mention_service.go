package service

import (
	"context"
	"strings"

	"clubhouse/internal/mention"
	"clubhouse/internal/models"
	"clubhouse/internal/repository"
)

type MentionService struct {
	profileRepo repository.ProfileRepository
}

func NewMentionService(profileRepo repository.ProfileRepository) *MentionService {
	return &MentionService{profileRepo: profileRepo}
}

// Suggest returns up to mention.MaxSuggestions profiles whose username starts
// with query. A leading "@" is ignored and an empty query matches nothing.
func (s *MentionService) Suggest(ctx context.Context, query string) ([]models.Profile, error) {
	prefix := strings.TrimPrefix(strings.TrimSpace(query), "@")
	if prefix == "" {
		return []models.Profile{}, nil
	}
	return s.profileRepo.LookupByUsernamePrefix(ctx, prefix, mention.MaxSuggestions)
}

// Lookup adapts the service to a mention.Suggester.
func (s *MentionService) Lookup() mention.LookupFunc {
	return func(ctx context.Context, prefix string, limit int) ([]models.Profile, error) {
		return s.profileRepo.LookupByUsernamePrefix(ctx, prefix, min(limit, mention.MaxSuggestions))
	}
}
