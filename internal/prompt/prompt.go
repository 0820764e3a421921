// Package prompt renders the text sent to the language model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/tunetalk/tunetalk/internal/history"
)

// Example is a few-shot pair shown to the model.
type Example struct {
	Request string
	JSON    string
}

// Examples are embedded, in order, in every extraction prompt.
var Examples = []Example{
	{
		Request: "A chill playlist for studying",
		JSON:    `{"seed_genres": ["chill", "ambient"], "target_audio_features": {"instrumentalness": 0.7}, "seed_artists": [], "seed_tracks": [], "keywords": ["chill", "study"], "negative_keywords": []}`,
	},
	{
		Request: "Energetic workout music with 90s hip-hop",
		JSON:    `{"seed_genres": ["hip-hop"], "seed_artists": ["artists of 90s hip-hop"], "target_audio_features": {"energy": 0.8, "danceability": 0.7}, "seed_tracks": [], "keywords": ["90s", "workout"], "negative_keywords": []}`,
	},
}

// Persona is the voice of the assistant in greetings and follow-ups.
const Persona = `You love everything music! It's your passion to work with people and create the best playlists for them. Engage with the user to get the right information to create the playlist they want.`

const extractionHeader = `Analyse the user's request for a Spotify playlist and extract parameters suitable for the Spotify API's recommendation engine. Provide output as a JSON object.

Use only these keys: seed_genres, seed_artists, seed_tracks, target_audio_features, keywords, negative_keywords.
target_audio_features may only contain energy, danceability, valence, instrumentalness and acousticness, each between 0.0 and 1.0.

Examples:`

// BuildExtractionPrompt renders the few-shot prompt for userText. The text
// is inserted verbatim.
func BuildExtractionPrompt(userText string) string {
	var b strings.Builder
	b.WriteString(extractionHeader)
	b.WriteString("\n")
	for _, ex := range Examples {
		fmt.Fprintf(&b, "User Request: %q\nJSON: %s\n\n", ex.Request, ex.JSON)
	}
	fmt.Fprintf(&b, "User Request: \"%s\"\n\n", userText)
	b.WriteString("Analyze the request and answer with the JSON object only, no explanation.\n")
	return b.String()
}

// BuildGreetingPrompt asks the model to open the conversation.
func BuildGreetingPrompt() string {
	return Persona + "\n\nGreet the user in one or two sentences and ask what kind of playlist they would like."
}

// BuildClarificationPrompt asks the model for one follow-up question, given
// the most recent turns.
func BuildClarificationPrompt(turns []history.Turn) string {
	var b strings.Builder
	b.WriteString(Persona)
	b.WriteString("\n\nConversation so far:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Label(), t.Text)
	}
	b.WriteString("\nThe last request could not be turned into playlist parameters. ")
	b.WriteString("Ask the user exactly one short follow-up question about genres, artists, mood or energy that would help.")
	return b.String()
}
