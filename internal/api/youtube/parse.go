package youtube

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"spotify2mp3/internal/core/search"
)

// ErrNoInitialData means the results page did not carry the embedded search payload
var ErrNoInitialData = errors.New("search page has no initial data")

var initialDataMarkers = [][]byte{
	[]byte("var ytInitialData = "),
	[]byte(`window["ytInitialData"] = `),
}

const sectionsPath = "contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.contents"

// ParseResults extracts video hits from a results page in page order.
// Channels, playlists, shelves and ads are ignored.
func ParseResults(page []byte) ([]search.Result, error) {
	data, err := extractInitialData(page)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrNoInitialData)
	}

	var results []search.Result
	gjson.GetBytes(data, sectionsPath).ForEach(func(_, section gjson.Result) bool {
		section.Get("itemSectionRenderer.contents").ForEach(func(_, item gjson.Result) bool {
			video := item.Get("videoRenderer")
			if !video.Exists() {
				return true
			}
			suffix := watchPath(video.Get("navigationEndpoint.commandMetadata.webCommandMetadata.url").String())
			if suffix == "" {
				suffix = watchPath("/watch?v=" + video.Get("videoId").String())
			}
			if suffix == "" {
				return true
			}
			results = append(results, search.Result{
				URLSuffix: suffix,
				Duration:  video.Get("lengthText.simpleText").String(),
				Views:     viewText(video),
				Title:     video.Get("title.runs.0.text").String(),
			})
			return true
		})
		return true
	})
	return results, nil
}

func viewText(video gjson.Result) string {
	if v := video.Get("viewCountText.simpleText"); v.Exists() {
		return v.String()
	}
	// live and premiere entries split the count into runs
	var buf bytes.Buffer
	video.Get("viewCountText.runs").ForEach(func(_, run gjson.Result) bool {
		buf.WriteString(run.Get("text").String())
		return true
	})
	return buf.String()
}

// extractInitialData returns the JSON object assigned to ytInitialData
func extractInitialData(page []byte) ([]byte, error) {
	for _, marker := range initialDataMarkers {
		idx := bytes.Index(page, marker)
		if idx < 0 {
			continue
		}
		rest := page[idx+len(marker):]
		end := matchingBrace(rest)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated payload", ErrNoInitialData)
		}
		return rest[:end+1], nil
	}
	return nil, ErrNoInitialData
}

// matchingBrace returns the index of the brace closing the object that starts at data[0]
func matchingBrace(data []byte) int {
	if len(data) == 0 || data[0] != '{' {
		return -1
	}
	depth := 0
	inString := false
	escaped := false
	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
