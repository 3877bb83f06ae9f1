package job_message

// SongIdentifier names the song record a job message operates on.
// Every message in the chain embeds it.
type SongIdentifier struct {
	SongID string `json:"song_id"`
}
