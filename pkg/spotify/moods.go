package spotify

import (
	"hash/fnv"
	"math/rand"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
)

// MoodFeatures maps a mood label to the audio attribute profile used when the
// audio-features endpoint returns nothing for a track.
var MoodFeatures = map[string]map[string]float64{
	"happy": {
		domain.AttrValence:      0.8,
		domain.AttrEnergy:       0.7,
		domain.AttrDanceability: 0.7,
	},
	"sad": {
		domain.AttrValence:      0.2,
		domain.AttrEnergy:       0.3,
		domain.AttrDanceability: 0.3,
	},
	"energetic": {
		domain.AttrValence:      0.7,
		domain.AttrEnergy:       0.9,
		domain.AttrDanceability: 0.8,
	},
	"calm": {
		domain.AttrValence:      0.5,
		domain.AttrEnergy:       0.2,
		domain.AttrDanceability: 0.3,
		domain.AttrAcousticness: 0.5,
	},
	"focused": {
		domain.AttrValence:          0.5,
		domain.AttrEnergy:           0.5,
		domain.AttrInstrumentalness: 0.7,
	},
}

// MoodGenres maps a mood label to its typical genres, used to tag collected
// songs for semantic descriptions.
var MoodGenres = map[string][]string{
	"happy":     {"pop", "dance", "disco"},
	"sad":       {"acoustic", "sad", "piano"},
	"energetic": {"rock", "electronic", "work-out"},
	"calm":      {"ambient", "chill", "classical"},
	"focused":   {"instrumental", "classical", "jazz"},
}

// syntheticFeatures builds an audio attribute map for a track whose features
// Spotify would not serve. It starts from the mood profile and adds a small
// deterministic jitter seeded by the track ID, so the vectors stay
// reproducible across collector runs.
func syntheticFeatures(trackID, mood string) map[string]float64 {
	hasher := fnv.New32a()
	hasher.Write([]byte(trackID))
	rng := rand.New(rand.NewSource(int64(hasher.Sum32())))

	profile, ok := MoodFeatures[mood]
	if !ok {
		profile = map[string]float64{
			domain.AttrValence:      0.5,
			domain.AttrEnergy:       0.5,
			domain.AttrDanceability: 0.5,
		}
	}

	out := make(map[string]float64, len(profile)+1)
	for attr, target := range profile {
		jitter := (rng.Float64() - 0.5) * 0.2
		v := target + jitter
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[attr] = v
	}
	out[domain.AttrTempo] = 60 + rng.Float64()*120
	return out
}
