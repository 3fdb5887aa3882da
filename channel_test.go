package caption

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const richGridPage = `<html><head>
<title>Ignored - YouTube</title>
<meta property="og:title" content="Test Channel">
</head><body>
<script>var ytInitialData = {"contents":{"twoColumnBrowseResultsRenderer":{"tabs":[
  {"tabRenderer":{"content":{"richGridRenderer":{"contents":[
    {"richItemRenderer":{"content":{"videoRenderer":{
      "videoId":"aaaaaaaaaaa",
      "title":{"runs":[{"text":"First"},{"text":" ignored"}]},
      "thumbnail":{"thumbnails":[{"url":"small.jpg"},{"url":"large.jpg"}]},
      "viewCountText":{"simpleText":"1,234 views"},
      "publishedTimeText":{"simpleText":"2 days ago"},
      "lengthText":{"simpleText":"4:20"}}}}},
    {"richItemRenderer":{"content":{"videoRenderer":{"videoId":"bbbbbbbbbbb","title":{"runs":[{"text":"Second"}]}}}}},
    {"continuationItemRenderer":{}}
  ]}}}}
]}}};</script>
</body></html>`

const gridPage = `<html><head><title>Old Layout - YouTube</title></head><body>
<script>var ytInitialData = {"contents":{"twoColumnBrowseResultsRenderer":{"tabs":[
  {"tabRenderer":{"content":{"sectionListRenderer":{"contents":[{"itemSectionRenderer":{"contents":[
    {"gridRenderer":{"items":[{"gridVideoRenderer":{"videoId":"ccccccccccc","title":{"simpleText":"Grid"}}}]}}
  ]}}]}}}}
]}}};</script>
</body></html>`

const linksPage = `<html><head><title>Links Only - YouTube</title></head><body>
<a href="/watch?v=ddddddddddd" title="Titled">x</a>
<a href="/watch?v=ddddddddddd">duplicate</a>
<a href="/watch?v=eeeeeeeeeee&t=10"> Text title </a>
<a href="/watch?v=fffffffffff"></a>
<a href="/channel/xyz">not a video</a>
</body></html>`

func TestParseChannelPageRichGrid(t *testing.T) {
	ch, err := ParseChannelPage(strings.NewReader(richGridPage))
	require.NoError(t, err)

	assert.Equal(t, "Test Channel", ch.Name)
	require.Len(t, ch.Videos, 2)
	assert.Equal(t, ChannelVideo{
		VideoID:       "aaaaaaaaaaa",
		Title:         "First",
		Thumbnail:     "large.jpg",
		ViewCount:     "1,234 views",
		PublishedTime: "2 days ago",
		Duration:      "4:20",
	}, ch.Videos[0])
	assert.Equal(t, "Second", ch.Videos[1].Title)
	assert.Equal(t, "0 views", ch.Videos[1].ViewCount)
}

func TestParseChannelPageGrid(t *testing.T) {
	ch, err := ParseChannelPage(strings.NewReader(gridPage))
	require.NoError(t, err)

	assert.Equal(t, "Old Layout", ch.Name)
	require.Len(t, ch.Videos, 1)
	assert.Equal(t, "ccccccccccc", ch.Videos[0].VideoID)
	assert.Equal(t, "Grid", ch.Videos[0].Title)
}

func TestParseChannelPageLinkFallback(t *testing.T) {
	ch, err := ParseChannelPage(strings.NewReader(linksPage))
	require.NoError(t, err)

	assert.Equal(t, "Links Only", ch.Name)
	assert.Equal(t, []ChannelVideo{
		{VideoID: "ddddddddddd", Title: "Titled"},
		{VideoID: "eeeeeeeeeee", Title: "Text title"},
		{VideoID: "fffffffffff", Title: "Untitled"},
	}, ch.Videos)
}

func TestParseChannelPageLimitsVideos(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < MaxChannelVideos+5; i++ {
		fmt.Fprintf(&sb, `<a href="/watch?v=vid%08d">v</a>`, i)
	}
	sb.WriteString("</body></html>")

	ch, err := ParseChannelPage(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Len(t, ch.Videos, MaxChannelVideos)
	assert.Equal(t, "Unknown Channel", ch.Name)
}

func TestParseChannelURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		kind    string
		id      string
		url     string
		wantErr bool
	}{
		{"handle", "https://www.youtube.com/@veritasium/featured", "handle", "veritasium", "https://www.youtube.com/@veritasium", false},
		{"channel id", "https://youtube.com/channel/UC123?x=1", "channelId", "UC123", "https://www.youtube.com/channel/UC123", false},
		{"custom", "https://www.youtube.com/c/Name", "customUrl", "Name", "https://www.youtube.com/c/Name", false},
		{"user", "https://www.youtube.com/user/old", "user", "old", "https://www.youtube.com/user/old", false},
		{"video url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := ParseChannelURL(tt.in)
			if tt.wantErr {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.kind, ref.Kind)
			assert.Equal(t, tt.id, ref.ID)
			assert.Equal(t, tt.url, ref.URL())
		})
	}
}

func TestChannelVideosURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/@x/videos?view=0&sort=p&flow=grid", channelVideosURL("https://www.youtube.com/@x"))
	assert.Equal(t, "https://www.youtube.com/@x/videos?view=0&sort=p&flow=grid", channelVideosURL("https://www.youtube.com/@x/"))
	assert.Equal(t, "https://www.youtube.com/c/x?a=1&view=0&sort=p&flow=grid", channelVideosURL("https://www.youtube.com/c/x?a=1"))
}

func TestClientChannel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/@test/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") != "p" {
			http.Error(w, "missing sort", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, richGridPage)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	c := newTestClient(t, ts)

	ch, err := c.Channel(context.Background(), ts.URL+"/@test")
	require.NoError(t, err)
	assert.Equal(t, "Test Channel", ch.Name)
	assert.Equal(t, ts.URL+"/@test", ch.URL)
	assert.Len(t, ch.Videos, 2)

	_, err = c.Channel(context.Background(), ts.URL+"/@missing")
	assert.ErrorContains(t, err, "HTTP 404")
}
