package spotify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// URLKind is what a user-supplied Spotify reference points at
type URLKind string

const (
	KindSong            URLKind = "song"
	KindPlaylist        URLKind = "playlist"
	KindPrivatePlaylist URLKind = "private_playlist"
	KindAlbum           URLKind = "album"
	KindLiked           URLKind = "liked"
	KindInvalid         URLKind = "invalid"
)

// LikedKeyword selects the current user's saved tracks instead of a URL
const LikedKeyword = "liked"

var ErrInvalidURL = errors.New("invalid Spotify URL")

var (
	songPattern            = regexp.MustCompile(`^https://open\.spotify\.com/track/[A-Za-z0-9?=\-]+`)
	playlistPattern        = regexp.MustCompile(`^https://open\.spotify\.com/playlist/[A-Za-z0-9?=\-]+`)
	privatePlaylistPattern = regexp.MustCompile(`^https://open\.spotify\.com/playlist/[A-Za-z0-9?=[A-Za-z0-9&pt=[A-Za-z0-9\-]+`)
	albumPattern           = regexp.MustCompile(`^https://open\.spotify\.com/album/[A-Za-z0-9?=\-]+`)

	idPatterns = map[URLKind]*regexp.Regexp{
		KindSong:            regexp.MustCompile(`/track/([a-zA-Z0-9]+)`),
		KindAlbum:           regexp.MustCompile(`/album/([a-zA-Z0-9]+)`),
		KindPlaylist:        regexp.MustCompile(`/playlist/([a-zA-Z0-9]+)`),
		KindPrivatePlaylist: regexp.MustCompile(`/playlist/([a-zA-Z0-9]+)`),
	}

	bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
)

// Classify maps a raw URL (or the liked keyword) to the kind of resource it names.
// The private playlist pattern is checked before the public one.
func Classify(raw string) (URLKind, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == LikedKeyword:
		return KindLiked, nil
	case songPattern.MatchString(raw):
		return KindSong, nil
	case privatePlaylistPattern.MatchString(raw):
		return KindPrivatePlaylist, nil
	case playlistPattern.MatchString(raw):
		return KindPlaylist, nil
	case albumPattern.MatchString(raw):
		return KindAlbum, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
}

// ExtractID returns the resource id of a URL of the given kind. A bare 22-character id passes through.
func ExtractID(kind URLKind, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if bareIDPattern.MatchString(raw) {
		return raw, nil
	}
	re, ok := idPatterns[kind]
	if !ok {
		return "", fmt.Errorf("%w: no id for kind %s", ErrInvalidURL, kind)
	}
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return m[1], nil
}
