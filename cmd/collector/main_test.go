package main

import "testing"

func TestParsePlaylists(t *testing.T) {
	refs := parsePlaylists("abc:happy, def:sad ,ghi")
	if len(refs) != 3 {
		t.Fatalf("len = %d", len(refs))
	}
	if refs[0] != (playlistRef{ID: "abc", Mood: "happy"}) {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1] != (playlistRef{ID: "def", Mood: "sad"}) {
		t.Errorf("refs[1] = %+v", refs[1])
	}
	if refs[2] != (playlistRef{ID: "ghi", Mood: ""}) {
		t.Errorf("refs[2] = %+v", refs[2])
	}
}

func TestLoadConfigDefaultPlaylists(t *testing.T) {
	t.Setenv("PLAYLISTS", "")
	cfg := loadConfig()
	if len(cfg.Playlists) != 4 {
		t.Errorf("default playlists = %d", len(cfg.Playlists))
	}
	if cfg.PerPlaylist != 20 {
		t.Errorf("PerPlaylist = %d", cfg.PerPlaylist)
	}
}
