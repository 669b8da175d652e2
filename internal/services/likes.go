package services

import (
	"context"
	"errors"

	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/anonto42/buddyfeed/internal/observability"
	"github.com/anonto42/buddyfeed/internal/repositories"
	"golang.org/x/sync/errgroup"
)

// DefaultLookupConcurrency bounds the parallel profile reads of one Resolve call.
const DefaultLookupConcurrency = 8

// LikesService resolves liker ids to profiles for the likes list.
type LikesService struct {
	users       repositories.UserRepository
	concurrency int
}

func NewLikesService(users repositories.UserRepository, concurrency int) *LikesService {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	return &LikesService{users: users, concurrency: concurrency}
}

// Resolve looks up every id concurrently and returns the profiles found, in input
// order. Missing profiles and failed lookups are skipped.
func (s *LikesService) Resolve(ctx context.Context, userIDs []string) []models.User {
	found := make([]*models.User, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, uid := range userIDs {
		g.Go(func() error {
			user, err := s.users.GetUserByUID(gctx, uid)
			if err != nil {
				if !errors.Is(err, repositories.ErrNotFound) {
					observability.ProfileLookupFailures.Inc()
					observability.LogServiceError(gctx, "likes", "Resolve", err, map[string]interface{}{"uid": uid})
				}
				return nil
			}
			found[i] = user
			return nil
		})
	}
	_ = g.Wait()

	users := make([]models.User, 0, len(userIDs))
	for _, u := range found {
		if u != nil {
			users = append(users, *u)
		}
	}
	return users
}
