package services

import (
	"context"

	"github.com/google/uuid"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// FavoriteService maintains saved listings. A listing's favorite_count is
// recomputed from the favorites rows in the same transaction as each change.
type FavoriteService struct {
	repo *repository.Repository
}

// NewFavoriteService creates a new FavoriteService
func NewFavoriteService(repo *repository.Repository) *FavoriteService {
	return &FavoriteService{repo: repo}
}

// Add saves a listing. Saving it twice is a Conflict.
func (s *FavoriteService) Add(ctx context.Context, userID, listingID uuid.UUID) (*models.FavoriteState, error) {
	if err := s.checkListing(ctx, userID, listingID); err != nil {
		return nil, err
	}

	var count int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateFavorite(ctx, &models.Favorite{UserID: userID, ListingID: listingID}); err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				return apperr.Conflict("listing is already in your favorites")
			}
			return err
		}
		var err error
		count, err = tx.RecomputeFavoriteCount(ctx, listingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.FavoriteState{ListingID: listingID, Favorited: true, FavoriteCount: count}, nil
}

// Remove unsaves a listing. Removing one that is not saved is NotFound.
func (s *FavoriteService) Remove(ctx context.Context, userID, listingID uuid.UUID) (*models.FavoriteState, error) {
	var count int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		removed, err := tx.DeleteFavorite(ctx, userID, listingID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.NotFound("favorite")
		}
		count, err = tx.RecomputeFavoriteCount(ctx, listingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.FavoriteState{ListingID: listingID, Favorited: false, FavoriteCount: count}, nil
}

// Toggle adds the listing when absent and removes it when present
func (s *FavoriteService) Toggle(ctx context.Context, userID, listingID uuid.UUID) (*models.FavoriteState, error) {
	existing, err := s.repo.FindFavorite(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.Remove(ctx, userID, listingID)
	}
	return s.Add(ctx, userID, listingID)
}

// List returns the user's favorites with their listings
func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	favs, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	// saved listings that were since hidden keep their row but not their contents
	for i := range favs {
		if favs[i].Listing != nil && visibleTo(favs[i].Listing, userID) != nil {
			favs[i].Listing = nil
		}
	}
	return favs, nil
}

func (s *FavoriteService) checkListing(ctx context.Context, userID, listingID uuid.UUID) error {
	listing, err := s.repo.GetListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	return visibleTo(listing, userID)
}
