package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateSong_Valid(t *testing.T) {
	s := Song{
		Name:   "Blinding Lights",
		Artist: "The Weeknd",
		Genre:  "pop",
		Mood:   "energetic",
		Audio:  map[string]float64{AttrEnergy: 0.73, AttrTempo: 171},
	}
	if err := ValidateSong(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSong_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		song Song
	}{
		{"empty name", Song{Artist: "Queen"}},
		{"whitespace name", Song{Name: "   ", Artist: "Queen"}},
		{"empty artist", Song{Name: "Bohemian Rhapsody"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSong(tc.song)
			if !errors.Is(err, ErrInvalidSong) {
				t.Fatalf("got %v, want ErrInvalidSong", err)
			}
		})
	}
}

func TestValidateSong_UnknownAttribute(t *testing.T) {
	s := Song{Name: "x", Artist: "y", Audio: map[string]float64{"loudness": -7.2}}
	if err := ValidateSong(s); !errors.Is(err, ErrInvalidSong) {
		t.Fatalf("got %v, want ErrInvalidSong", err)
	}
}

func TestValidateSong_NaNAttribute(t *testing.T) {
	s := Song{Name: "x", Artist: "y", Audio: map[string]float64{AttrEnergy: math.NaN()}}
	if err := ValidateSong(s); !errors.Is(err, ErrInvalidSong) {
		t.Fatalf("got %v, want ErrInvalidSong", err)
	}
}

func TestValidateQuery(t *testing.T) {
	if err := ValidateQuery("songs for a rainy breakup"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateQuery("   "); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("got %v, want ErrInvalidQuery", err)
	}
	if err := ValidateQuery(strings.Repeat("a", 501)); !errors.Is(err, ErrQueryTooLong) {
		t.Fatalf("got %v, want ErrQueryTooLong", err)
	}
}

func TestSongKey(t *testing.T) {
	withID := Song{ID: "spotify:123", Name: "Flowers", Artist: "Miley Cyrus"}
	if withID.Key() != "spotify:123" {
		t.Errorf("Key() = %q, want catalog id", withID.Key())
	}
	noID := Song{Name: "Flowers", Artist: "Miley Cyrus"}
	if noID.Key() != "flowers|miley cyrus" {
		t.Errorf("Key() = %q", noID.Key())
	}
}

func TestSongDescription(t *testing.T) {
	s := Song{Name: "Shape of You", Artist: "Ed Sheeran", Genre: "pop", Mood: "happy"}
	want := "Shape of You by Ed Sheeran pop happy"
	if got := s.Description(); got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("name", "", ErrInvalidSong)
	if !errors.Is(err, ErrInvalidSong) {
		t.Fatal("Unwrap should expose the sentinel")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("Error() = %q, want field name included", err.Error())
	}
}
