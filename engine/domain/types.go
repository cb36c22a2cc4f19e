// Package domain defines core domain types, constants, and validation for the
// MoodTunes engine pipeline. It acts as the validation gate at pipeline entry points.
package domain

import "strings"

// Song represents one catalog record. Name and Artist are required; Audio
// holds the optional numeric attributes keyed by feature name. A missing key
// means the value is unknown, not zero.
type Song struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Artist      string             `json:"artist"`
	Genre       string             `json:"genre,omitempty"`
	Mood        string             `json:"mood,omitempty"`
	SearchTag   string             `json:"search_tag,omitempty"`
	Audio       map[string]float64 `json:"audio,omitempty"`
	IsSynthetic bool               `json:"is_synthetic,omitempty"`
}

// Key returns the identifier for a song within an index: the catalog ID when
// present, otherwise a lowercased name+artist key.
func (s Song) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return strings.ToLower(s.Name) + "|" + strings.ToLower(s.Artist)
}

// Description synthesizes the text encoded by the semantic engine,
// e.g. "Shape of You by Ed Sheeran pop happy".
func (s Song) Description() string {
	parts := []string{s.Name, "by", s.Artist}
	for _, tag := range []string{s.Genre, s.Mood, s.SearchTag} {
		if tag != "" {
			parts = append(parts, tag)
		}
	}
	return strings.Join(parts, " ")
}

// Recommendation is one ranked result produced per request. Not persisted.
type Recommendation struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Artist string  `json:"artist"`
	Tag    string  `json:"tag,omitempty"`
	Score  float64 `json:"score"`
	Source Source  `json:"source"`
}

// Source identifies which engine produced a recommendation.
type Source string

const (
	SourceContent  Source = "content"
	SourceSemantic Source = "semantic"
)

// Audio feature names accepted on Song.Audio. The feature pipeline documents
// the order in which they become vector dimensions.
const (
	AttrDanceability     = "danceability"
	AttrEnergy           = "energy"
	AttrValence          = "valence"
	AttrTempo            = "tempo"
	AttrAcousticness     = "acousticness"
	AttrInstrumentalness = "instrumentalness"
	AttrSpeechiness      = "speechiness"
	AttrLiveness         = "liveness"
	AttrPopularity       = "popularity"
)
