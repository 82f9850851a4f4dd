// Package model holds the domain types shared across the service.
package model

import "time"

// Song is a catalog entry. Songs are created and edited by the admin
// console only; the player treats them as immutable.
type Song struct {
	ID     string `db:"id" json:"id"`
	Number string `db:"number" json:"number"`
	Title  string `db:"title" json:"title"`
	Artist string `db:"artist" json:"artist"`
	Lyrics string `db:"lyrics" json:"lyrics,omitempty"`
}

// QueueEntry is a singer waiting to perform. Position is a dense 1-based
// rank across all live entries; it is rewritten after every structural
// change to the queue.
type QueueEntry struct {
	ID        string    `json:"id"`
	Song      Song      `json:"song"`
	Singer    string    `json:"singer"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// RankingEntry is a committed performance score. Entries are immutable
// once created; the board is a multiset ordered by score descending.
type RankingEntry struct {
	ID        string    `json:"id"`
	Song      Song      `json:"song"`
	Singer    string    `json:"singer"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// SoundEffects maps score tiers to configured audio file paths.
type SoundEffects struct {
	Low        string `json:"low"`
	Medium     string `json:"medium"`
	High       string `json:"high"`
	Drums      string `json:"drums"`
	Incomplete string `json:"incomplete"`
}

// Settings is the singleton application configuration row, owned by the
// admin console and read-mostly by the core.
type Settings struct {
	ID              string       `json:"id,omitempty"`
	VideosPath      string       `json:"videos_path"`
	BackgroundImage string       `json:"background_image,omitempty"`
	SoundEffects    SoundEffects `json:"sound_effects"`
	CreatedAt       time.Time    `json:"created_at,omitempty"`
}
