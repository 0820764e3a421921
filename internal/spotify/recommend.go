package spotify

import (
	"github.com/sirupsen/logrus"

	"github.com/tunetalk/tunetalk/internal/request"
)

// MaxSeeds is the recommendation API's limit on genres, artists and tracks
// combined.
const MaxSeeds = 5

// RecommendationArgs are the recommendation query parameters, before artist
// and track names are resolved to IDs.
type RecommendationArgs struct {
	Genres  []string
	Artists []string
	Tracks  []string
	Targets map[request.Feature]float64
	Limit   int
}

// SeedCount returns the number of seeds across all three lists.
func (a RecommendationArgs) SeedCount() int {
	return len(a.Genres) + len(a.Artists) + len(a.Tracks)
}

// ToRecommendationArgs maps a playlist request onto recommendation
// parameters. Seeds are capped at MaxSeeds in total: genres first, then
// artists, then tracks, each truncated to whatever quota remains. Only the
// known target features are copied.
func ToRecommendationArgs(req request.PlaylistRequest, limit int) RecommendationArgs {
	args := RecommendationArgs{Limit: limit}

	remaining := MaxSeeds
	take := func(seeds []string) []string {
		if len(seeds) == 0 || remaining == 0 {
			return nil
		}
		n := len(seeds)
		if n > remaining {
			n = remaining
		}
		remaining -= n
		return append([]string(nil), seeds[:n]...)
	}
	args.Genres = take(req.SeedGenres)
	args.Artists = take(req.SeedArtists)
	args.Tracks = take(req.SeedTracks)

	for _, f := range request.Features {
		if v, ok := req.TargetAudioFeatures[f]; ok {
			if args.Targets == nil {
				args.Targets = map[request.Feature]float64{}
			}
			args.Targets[f] = v
		}
	}

	if args.SeedCount() == 0 {
		logrus.WithField("keywords", len(req.Keywords)).Warn("no seed genres, artists or tracks provided")
	}
	return args
}
