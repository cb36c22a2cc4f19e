package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxQueryLength = 500
	maxNameLength  = 300
)

// KnownAttributes is the set of audio feature names a Song may carry. Any
// other key is rejected at validation so typos surface at ingest, not as a
// silently missing vector dimension.
var KnownAttributes = map[string]bool{
	AttrDanceability: true, AttrEnergy: true, AttrValence: true,
	AttrTempo: true, AttrAcousticness: true, AttrInstrumentalness: true,
	AttrSpeechiness: true, AttrLiveness: true, AttrPopularity: true,
}

// ValidateSong validates a catalog record at the ingest boundary.
func ValidateSong(s Song) error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return NewValidationError("name", s.Name, ErrInvalidSong)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return NewValidationError("name", name[:32]+"...", ErrInvalidSong)
	}
	if strings.TrimSpace(s.Artist) == "" {
		return NewValidationError("artist", s.Artist, ErrInvalidSong)
	}
	for attr, v := range s.Audio {
		if !KnownAttributes[attr] {
			return NewValidationError("audio."+attr, fmt.Sprintf("%g", v), ErrInvalidSong)
		}
		if v != v { // NaN never belongs in a stored record
			return NewValidationError("audio."+attr, "NaN", ErrInvalidSong)
		}
	}
	return nil
}

// ValidateQuery validates free-text recommendation queries.
func ValidateQuery(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return NewValidationError("query", text, ErrInvalidQuery)
	}
	if utf8.RuneCountInString(text) > maxQueryLength {
		return NewValidationError("query", text[:32]+"...", ErrQueryTooLong)
	}
	return nil
}
