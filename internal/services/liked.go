package services

import (
	"context"

	"github.com/desertthunder/likesync/internal/models"
	"golang.org/x/oauth2"
)

// LikedPageSize is the page size used when assembling the liked listing.
const LikedPageSize = MaxPageSize

// SavedTracksPager fetches one page of saved tracks.
type SavedTracksPager interface {
	SavedTracks(ctx context.Context, token *oauth2.Token, limit, offset int) (*SpotifyPaginatedTracks, error)
}

// FetchLiked assembles the complete liked listing in the order the service delivers it.
//
// The offset advances by the number of items actually returned. Paging stops on an empty page
// or once the accumulated count reaches the reported total.
func FetchLiked(ctx context.Context, pager SavedTracksPager, token *oauth2.Token) ([]models.LikedItem, error) {
	var listing []models.LikedItem
	offset := 0

	for {
		page, err := pager.SavedTracks(ctx, token, LikedPageSize, offset)
		if err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			break
		}

		for _, saved := range page.Items {
			listing = append(listing, saved.LikedItem())
		}

		offset += len(page.Items)
		if len(listing) >= page.Total {
			break
		}
	}

	return listing, nil
}
