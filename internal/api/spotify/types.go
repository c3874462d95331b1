package spotify

import (
	"github.com/zmb3/spotify/v2"

	"spotify2mp3/internal/catalog"
)

// tracksBatchSize is the most ids GetTracks accepts per call
const tracksBatchSize = 50

func firstImageURL(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func albumRecord(album spotify.SimpleAlbum) catalog.AlbumRecord {
	return catalog.AlbumRecord{
		Name:        album.Name,
		URL:         album.ExternalURLs["spotify"],
		ReleaseDate: album.ReleaseDate,
		Type:        album.AlbumType,
		CoverArtURL: firstImageURL(album.Images),
	}
}

func trackRecord(track *spotify.FullTrack) catalog.TrackRecord {
	artists := make([]catalog.ArtistRecord, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, catalog.ArtistRecord{Name: a.Name, URL: a.ExternalURLs["spotify"]})
	}
	return catalog.TrackRecord{
		ID:          track.ID.String(),
		Name:        track.Name,
		URL:         track.ExternalURLs["spotify"],
		Artists:     artists,
		Album:       albumRecord(track.Album),
		TrackNumber: int(track.TrackNumber),
		DiscNumber:  int(track.DiscNumber),
		DurationMs:  int(track.Duration),
		ISRC:        track.ExternalIDs["isrc"],
	}
}

// playlistRecords drops local files and removed tracks, which have no catalog id
func playlistRecords(items []spotify.PlaylistTrack) []catalog.TrackRecord {
	records := make([]catalog.TrackRecord, 0, len(items))
	for i := range items {
		if items[i].IsLocal || items[i].Track.ID == "" {
			continue
		}
		records = append(records, trackRecord(&items[i].Track))
	}
	return records
}

func savedRecords(items []spotify.SavedTrack) []catalog.TrackRecord {
	records := make([]catalog.TrackRecord, 0, len(items))
	for i := range items {
		if items[i].ID == "" {
			continue
		}
		records = append(records, trackRecord(&items[i].FullTrack))
	}
	return records
}
