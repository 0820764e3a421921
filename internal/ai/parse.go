package ai

import (
	"strings"

	"github.com/tunetalk/tunetalk/internal/request"
)

type moodRule struct {
	words    []string
	genres   []string
	features map[request.Feature]float64
	keyword  string
}

// Checked in order; later rules overwrite feature values set by earlier ones.
var moodRules = []moodRule{
	{
		words:    []string{"chill", "lofi", "relax", "calm"},
		genres:   []string{"chill", "ambient"},
		features: map[request.Feature]float64{request.FeatureEnergy: 0.3, request.FeatureDanceability: 0.4},
		keyword:  "chill",
	},
	{
		words:    []string{"study", "focus", "concentrat"},
		features: map[request.Feature]float64{request.FeatureInstrumentalness: 0.7},
		keyword:  "focus",
	},
	{
		words:    []string{"workout", "running", "gym", "energetic", "pump"},
		features: map[request.Feature]float64{request.FeatureEnergy: 0.8, request.FeatureDanceability: 0.7},
		keyword:  "workout",
	},
	{
		words:    []string{"party", "dance"},
		features: map[request.Feature]float64{request.FeatureDanceability: 0.8, request.FeatureValence: 0.7},
		keyword:  "party",
	},
	{
		words:    []string{"happy", "uplifting", "feel good"},
		features: map[request.Feature]float64{request.FeatureValence: 0.8},
		keyword:  "happy",
	},
	{
		words:    []string{"sad", "melancholy", "heartbreak"},
		features: map[request.Feature]float64{request.FeatureValence: 0.2},
		keyword:  "melancholy",
	},
	{
		words:    []string{"acoustic", "unplugged"},
		features: map[request.Feature]float64{request.FeatureAcousticness: 0.8},
		keyword:  "acoustic",
	},
}

var eraWords = []struct{ word, keyword string }{
	{"60s", "60s"}, {"70s", "70s"}, {"80s", "80s"}, {"90s", "90s"},
	{"2000s", "2000s"}, {"2010s", "2010s"},
}

// Known recommendation genres, matched against the lower-cased text in order.
var genreWords = []struct{ word, genre string }{
	{"indie", "indie"},
	{"pop", "pop"},
	{"rock", "rock"},
	{"jazz", "jazz"},
	{"house", "house"},
	{"techno", "techno"},
	{"classical", "classical"},
	{"ambient", "ambient"},
	{"electronic", "electronic"},
	{"hip-hop", "hip-hop"},
	{"hip hop", "hip-hop"},
	{"country", "country"},
	{"folk", "folk"},
	{"blues", "blues"},
	{"reggae", "reggae"},
	{"metal", "metal"},
	{"punk", "punk"},
	{"alternative", "alternative"},
	{"r&b", "r-n-b"},
	{"rnb", "r-n-b"},
	{"soul", "soul"},
	{"funk", "funk"},
	{"disco", "disco"},
	{"edm", "edm"},
	{"dubstep", "dubstep"},
	{"drum-and-bass", "drum-and-bass"},
	{"dnb", "drum-and-bass"},
	{"trance", "trance"},
	{"garage", "garage"},
	{"ska", "ska"},
	{"gospel", "gospel"},
	{"latin", "latin"},
	{"world", "world-music"},
}

const maxHeuristicGenres = 3

// HeuristicRequest builds a request from keyword matches alone. It is the
// fallback when the model cannot produce a usable request.
func HeuristicRequest(text string) request.PlaylistRequest {
	q := strings.ToLower(text)
	var (
		genres   []string
		keywords []string
		features = map[request.Feature]float64{}
	)

	for _, rule := range moodRules {
		if !containsAny(q, rule.words) {
			continue
		}
		genres = append(genres, rule.genres...)
		for f, v := range rule.features {
			features[f] = v
		}
		keywords = append(keywords, rule.keyword)
	}
	for _, era := range eraWords {
		if strings.Contains(q, era.word) {
			keywords = append(keywords, era.keyword)
		}
	}
	for _, g := range genreWords {
		if strings.Contains(q, g.word) {
			genres = append(genres, g.genre)
		}
	}

	req := request.PlaylistRequest{
		SeedGenres: dedupeCap(genres, maxHeuristicGenres),
		Keywords:   dedupeCap(keywords, 0),
	}
	if len(features) > 0 {
		req.TargetAudioFeatures = features
	}
	return req
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// dedupeCap drops blanks and repeats, keeping at most max items (0 means no cap).
func dedupeCap(items []string, max int) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
