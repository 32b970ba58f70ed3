package tasks

import "github.com/desertthunder/likesync/internal/models"

// SelectCandidates reduces the liked listing to the ordered, deduplicated URIs to write.
//
// Records without an item, with an empty URI, local files and items marked unplayable are skipped.
// Later repeats of a URI are dropped without being counted as skipped.
func SelectCandidates(listing []models.LikedItem) models.CandidateSet {
	set := models.CandidateSet{URIs: []string{}, LikedCount: len(listing)}
	seen := make(map[string]struct{}, len(listing))

	for _, rec := range listing {
		if skippable(rec) {
			set.SkippedCount++
			continue
		}

		uri := rec.Item.URI
		if _, ok := seen[uri]; ok {
			continue
		}

		seen[uri] = struct{}{}
		set.URIs = append(set.URIs, uri)
	}

	return set
}

func skippable(rec models.LikedItem) bool {
	item := rec.Item
	return item == nil || item.URI == "" || item.IsLocal || !item.Playable()
}
