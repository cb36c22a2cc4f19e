package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MoodTunesAI/moodtunes-mvp/engine/domain"
	"github.com/goccy/go-json"
)

type playlistTracksResponse struct {
	Items []struct {
		Track *wireTrack `json:"track"`
	} `json:"items"`
	Next string `json:"next"`
}

type wireTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Popularity float64 `json:"popularity"`
}

type wireAudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
	Liveness         float64 `json:"liveness"`
}

func (f wireAudioFeatures) allZero() bool {
	return f.Danceability == 0 && f.Energy == 0 && f.Valence == 0 &&
		f.Tempo == 0 && f.Acousticness == 0 && f.Instrumentalness == 0 &&
		f.Speechiness == 0 && f.Liveness == 0
}

func (f wireAudioFeatures) toAudio(popularity float64) map[string]float64 {
	return map[string]float64{
		domain.AttrDanceability:     f.Danceability,
		domain.AttrEnergy:           f.Energy,
		domain.AttrValence:          f.Valence,
		domain.AttrTempo:            f.Tempo,
		domain.AttrAcousticness:     f.Acousticness,
		domain.AttrInstrumentalness: f.Instrumentalness,
		domain.AttrSpeechiness:      f.Speechiness,
		domain.AttrLiveness:         f.Liveness,
		domain.AttrPopularity:       popularity,
	}
}

// FetchPlaylistTracks fetches up to limit tracks from a playlist and returns
// them as catalog songs tagged with the given mood. Tracks whose audio
// features Spotify refuses to serve get a synthetic mood-derived profile and
// are flagged accordingly.
func (c *Client) FetchPlaylistTracks(ctx context.Context, playlistID, mood string, limit int) ([]domain.Song, error) {
	if limit <= 0 {
		limit = 50
	}
	url := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", c.baseURL, playlistID, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("spotify: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify: playlist %s: %w", playlistID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spotify: playlist %s: status %d", playlistID, resp.StatusCode)
	}

	var page playlistTracksResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("spotify: playlist %s: %w", playlistID, err)
	}

	genre := ""
	if genres := MoodGenres[mood]; len(genres) > 0 {
		genre = genres[0]
	}

	var songs []domain.Song
	for _, item := range page.Items {
		track := item.Track
		if track == nil || track.ID == "" {
			continue
		}

		song := domain.Song{
			ID:        track.ID,
			Name:      track.Name,
			Genre:     genre,
			Mood:      mood,
			SearchTag: strings.Join(MoodGenres[mood], " "),
		}
		if len(track.Artists) > 0 {
			song.Artist = track.Artists[0].Name
		}

		features, err := c.audioFeatures(ctx, track.ID)
		if err != nil || features.allZero() {
			if err != nil {
				slog.Warn("spotify: audio features unavailable, using mood profile",
					"track", track.ID, "error", err)
			}
			song.Audio = syntheticFeatures(track.ID, mood)
			song.Audio[domain.AttrPopularity] = track.Popularity
			song.IsSynthetic = true
		} else {
			song.Audio = features.toAudio(track.Popularity)
		}

		songs = append(songs, song)
	}
	return songs, nil
}

func (c *Client) audioFeatures(ctx context.Context, trackID string) (wireAudioFeatures, error) {
	url := fmt.Sprintf("%s/audio-features/%s", c.baseURL, trackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return wireAudioFeatures{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return wireAudioFeatures{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wireAudioFeatures{}, fmt.Errorf("audio features %s: status %d", trackID, resp.StatusCode)
	}

	var features wireAudioFeatures
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return wireAudioFeatures{}, err
	}
	return features, nil
}
