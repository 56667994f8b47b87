// Package ytdlp wraps the yt-dlp CLI used by the acquire stage.
//
// Fetch downloads one source reference to a caller-chosen output template and
// returns the final path yt-dlp reports. Stderr markers for unsupported or
// removed media map to ErrUnavailable; everything else is an external tool
// failure the retry policy may try again.
package ytdlp
