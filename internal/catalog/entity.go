package catalog

import (
	"strings"
	"unicode"
)

// State is the load state of an entity
type State int

const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Kind identifies the entity variant
type Kind int

const (
	KindTrack Kind = iota
	KindAlbum
	KindPlaylist
	KindLiked
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	case KindLiked:
		return "liked songs"
	default:
		return "unknown"
	}
}

// Dir is the folder under the download root that holds this kind
func (k Kind) Dir() string {
	switch k {
	case KindAlbum:
		return "albums"
	case KindPlaylist, KindLiked:
		return "playlists"
	default:
		return "tracks"
	}
}

// Defaults used when the catalog omits a field
const (
	UnknownTitle          = "Unknown Title"
	UnknownArtist         = "Unknown artist"
	UnknownAlbumName      = "Unknown Album Name"
	UnknownPlaylistName   = "Unknown Playlist Name"
	UnknownCoverArtURL    = "https://i.scdn.co/image/ab67616d0000b273d8601e15fa1b4351fe1fc6ae"
	LikedSongsTitle       = "Liked Songs"
	LikedSongsPageSize    = 50
	searchableTitleJoiner = " - "
)

// legalPunctuation is the non-alphanumeric part of the path allow-list
const legalPunctuation = " -_.,()[]{}&'!+#@"

// Sanitize keeps only characters that are safe in a path segment on common filesystems
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(legalPunctuation, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(strings.TrimSpace(b.String()), ".")
}

func maybeSanitize(s string, sanitize bool) string {
	if sanitize {
		return Sanitize(s)
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
