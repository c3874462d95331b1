package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spotify2mp3/internal/api/spotify"
	"spotify2mp3/internal/config"
	"spotify2mp3/internal/shared"
)

// options holds the command-line flags shared by every command
type options struct {
	playlist string
	song     string
	track    string
	album    string
	liked    bool

	quality          string
	minViews         int64
	maxLengthMinutes int
	disableThreading bool
	parallelism      int
	output           string
	configFile       string
	debug            bool
	noProgress       bool

	// set by the wizard so its answer wins over the config file
	forceQuality bool
}

// target is the resolved download request
type target struct {
	kind spotify.URLKind
	id   string
}

func (t target) String() string {
	if t.kind == spotify.KindLiked {
		return "liked songs"
	}
	return fmt.Sprintf("%s %s", t.kind, t.id)
}

// NewRootCommand creates the spotify2mp3 command tree
func NewRootCommand(version string) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "spotify2mp3",
		Version: version,
		Short:   "Download Spotify tracks, albums and playlists as tagged mp3 files.",
		Long: fmt.Sprintf(`spotify2mp3 (v%s)

Looks up Spotify tracks, finds the matching video on YouTube, downloads its audio
and writes a tagged mp3 with cover art.

Run without arguments for an interactive prompt.`, version),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok, err := opts.flagTarget()
			if err != nil {
				return err
			}
			if !ok {
				if t, err = runWizard(opts, shared.GetUserInput); err != nil {
					return err
				}
			}
			return runDownload(commandContext(cmd), cmd, opts, version, t)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.playlist, "playlist", "p", "", "Spotify playlist URL")
	flags.StringVarP(&opts.song, "song", "s", "", "Spotify track URL")
	flags.StringVarP(&opts.track, "track", "t", "", "Spotify track URL (same as --song)")
	flags.StringVarP(&opts.album, "album", "a", "", "Spotify album URL")
	flags.BoolVarP(&opts.liked, "liked", "l", false, "Download your liked songs")
	cmd.MarkFlagsMutuallyExclusive("playlist", "song", "track", "album", "liked")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.quality, "quality", "q", config.DefaultQuality, "Audio quality: low, medium, high or a bitrate in bits per second")
	persistent.Int64Var(&opts.minViews, "min-views", config.DefaultMinViews, "Reject videos with this many views or fewer")
	persistent.IntVar(&opts.maxLengthMinutes, "max-length", config.DefaultMaxLengthSeconds/60, "Reject videos this many minutes long or longer")
	persistent.BoolVar(&opts.disableThreading, "disable-threading", false, "Download tracks one at a time")
	persistent.IntVar(&opts.parallelism, "parallelism", 1, "Number of tracks downloaded at once")
	persistent.StringVar(&opts.output, "output", "", "Directory to save downloads")
	persistent.StringVar(&opts.configFile, "config", "config.json", "Config file (.json, .yaml or .yml)")
	persistent.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	persistent.BoolVar(&opts.noProgress, "no-progress", false, "Hide transfer progress bars")

	cmd.AddCommand(
		newTrackCommand(opts, version),
		newAlbumCommand(opts, version),
		newPlaylistCommand(opts, version),
		newLikedCommand(opts, version),
		newVersionCommand(opts, version),
	)
	return cmd
}

// flagTarget returns the target named by the root flags, if any
func (o *options) flagTarget() (target, bool, error) {
	switch {
	case o.liked:
		return target{kind: spotify.KindLiked}, true, nil
	case o.playlist != "":
		t, err := parseTarget(o.playlist, spotify.KindPlaylist, spotify.KindPrivatePlaylist)
		return t, true, err
	case o.song != "":
		t, err := parseTarget(o.song, spotify.KindSong)
		return t, true, err
	case o.track != "":
		t, err := parseTarget(o.track, spotify.KindSong)
		return t, true, err
	case o.album != "":
		t, err := parseTarget(o.album, spotify.KindAlbum)
		return t, true, err
	}
	return target{}, false, nil
}

// parseTarget classifies raw. When kinds are given the link must be one of them,
// and a bare id is read as the first kind.
func parseTarget(raw string, kinds ...spotify.URLKind) (target, error) {
	kind, err := spotify.Classify(raw)
	if err != nil {
		if len(kinds) == 0 {
			return target{}, err
		}
		id, idErr := spotify.ExtractID(kinds[0], raw)
		if idErr != nil {
			return target{}, err
		}
		return target{kind: kinds[0], id: id}, nil
	}

	if len(kinds) > 0 && !containsKind(kinds, kind) {
		return target{}, fmt.Errorf("%w: expected a %s link, got a %s link", spotify.ErrInvalidURL, kinds[0], kind)
	}
	if kind == spotify.KindLiked {
		return target{kind: kind}, nil
	}
	id, err := spotify.ExtractID(kind, raw)
	if err != nil {
		return target{}, err
	}
	return target{kind: kind, id: id}, nil
}

func containsKind(kinds []spotify.URLKind, kind spotify.URLKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runWizard asks for a link and a quality
func runWizard(opts *options, prompt func(prompt, defaultValue string) string) (target, error) {
	shared.ColorHeader.Println("🎧 spotify2mp3")
	raw := prompt("Enter a Spotify track, album or playlist link (or 'liked')", "")
	if raw == "" {
		return target{}, shared.ErrWizardCancelled
	}
	t, err := parseTarget(raw)
	if err != nil {
		return target{}, err
	}

	quality := prompt("Quality (low, medium, high or a bitrate)", opts.quality)
	if _, err := config.ParseQuality(quality); err != nil {
		return target{}, err
	}
	opts.quality = quality
	opts.forceQuality = true
	return t, nil
}

// IsUsageError reports errors caused by bad input rather than a failed download
func IsUsageError(err error) bool {
	return errors.Is(err, spotify.ErrInvalidURL) || errors.Is(err, shared.ErrInvalidQuality) || errors.Is(err, shared.ErrWizardCancelled)
}
