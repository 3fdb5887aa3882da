package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxChannelVideos caps how many videos are taken from a channel page.
const MaxChannelVideos = 20

const (
	channelUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	initialDataMarker   = "ytInitialData = "
	defaultChannelName  = "Unknown Channel"
	defaultVideoTitle   = "Untitled"
	channelVideosParams = "view=0&sort=p&flow=grid"
)

// ChannelRef identifies a channel parsed from a URL.
type ChannelRef struct {
	Kind string // "handle", "channelId", "customUrl" or "user"
	ID   string
	Raw  string
}

var channelPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"handle", regexp.MustCompile(`youtube\.com/@([^/?]+)`)},
	{"channelId", regexp.MustCompile(`youtube\.com/channel/([^/?]+)`)},
	{"customUrl", regexp.MustCompile(`youtube\.com/c/([^/?]+)`)},
	{"user", regexp.MustCompile(`youtube\.com/user/([^/?]+)`)},
}

// ParseChannelURL recognizes @handle, /channel/, /c/ and /user/ channel URLs.
func ParseChannelURL(s string) (ChannelRef, bool) {
	s = strings.TrimSpace(s)
	for _, p := range channelPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) == 2 {
			return ChannelRef{Kind: p.kind, ID: m[1], Raw: s}, true
		}
	}
	return ChannelRef{}, false
}

// URL returns the canonical channel URL. Custom and user URLs are kept as given.
func (r ChannelRef) URL() string {
	switch r.Kind {
	case "handle":
		return "https://www.youtube.com/@" + r.ID
	case "channelId":
		return "https://www.youtube.com/channel/" + r.ID
	default:
		return r.Raw
	}
}

// ChannelVideo is one video listed on a channel's videos page.
type ChannelVideo struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	Thumbnail     string `json:"thumbnail"`
	ViewCount     string `json:"viewCount"`
	PublishedTime string `json:"publishedTime"`
	Duration      string `json:"duration"`
}

// Channel is the result of scraping a channel's videos page.
type Channel struct {
	Name   string         `json:"name"`
	URL    string         `json:"url"`
	Videos []ChannelVideo `json:"-"`
}

type ytText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t ytText) first() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	if len(t.Runs) > 0 {
		return t.Runs[0].Text
	}
	return ""
}

type ytVideoRenderer struct {
	VideoID   string `json:"videoId"`
	Title     ytText `json:"title"`
	Thumbnail struct {
		Thumbnails []struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"thumbnail"`
	ViewCountText     ytText `json:"viewCountText"`
	PublishedTimeText ytText `json:"publishedTimeText"`
	LengthText        ytText `json:"lengthText"`
}

type ytGridItem struct {
	RichItemRenderer *struct {
		Content struct {
			VideoRenderer *ytVideoRenderer `json:"videoRenderer"`
		} `json:"content"`
	} `json:"richItemRenderer"`
	GridVideoRenderer *ytVideoRenderer `json:"gridVideoRenderer"`
}

type ytInitialData struct {
	Contents struct {
		TwoColumnBrowseResultsRenderer struct {
			Tabs []struct {
				TabRenderer struct {
					Content struct {
						RichGridRenderer *struct {
							Contents []ytGridItem `json:"contents"`
						} `json:"richGridRenderer"`
						SectionListRenderer *struct {
							Contents []struct {
								ItemSectionRenderer struct {
									Contents []struct {
										GridRenderer *struct {
											Items []ytGridItem `json:"items"`
										} `json:"gridRenderer"`
									} `json:"contents"`
								} `json:"itemSectionRenderer"`
							} `json:"contents"`
						} `json:"sectionListRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"twoColumnBrowseResultsRenderer"`
	} `json:"contents"`
}

func (d *ytInitialData) videos() []ChannelVideo {
	var out []ChannelVideo
	for _, tab := range d.Contents.TwoColumnBrowseResultsRenderer.Tabs {
		content := tab.TabRenderer.Content
		var items []ytGridItem
		switch {
		case content.RichGridRenderer != nil:
			items = content.RichGridRenderer.Contents
		case content.SectionListRenderer != nil && len(content.SectionListRenderer.Contents) > 0:
			sections := content.SectionListRenderer.Contents[0].ItemSectionRenderer.Contents
			if len(sections) > 0 && sections[0].GridRenderer != nil {
				items = sections[0].GridRenderer.Items
			}
		}
		for _, item := range items {
			vr := item.GridVideoRenderer
			if item.RichItemRenderer != nil && item.RichItemRenderer.Content.VideoRenderer != nil {
				vr = item.RichItemRenderer.Content.VideoRenderer
			}
			if vr == nil {
				continue
			}
			out = append(out, vr.video())
		}
	}
	return out
}

func (vr *ytVideoRenderer) video() ChannelVideo {
	v := ChannelVideo{
		VideoID:       vr.VideoID,
		Title:         vr.Title.first(),
		ViewCount:     vr.ViewCountText.first(),
		PublishedTime: vr.PublishedTimeText.first(),
		Duration:      vr.LengthText.first(),
	}
	if n := len(vr.Thumbnail.Thumbnails); n > 0 {
		v.Thumbnail = vr.Thumbnail.Thumbnails[n-1].URL
	}
	if v.ViewCount == "" {
		v.ViewCount = "0 views"
	}
	return v
}

var watchLinkRE = regexp.MustCompile(`/watch\?v=([a-zA-Z0-9_-]{11})`)

// ParseChannelPage extracts the channel name and its videos from a channel
// videos page. Videos come from the embedded ytInitialData; watch links are
// used when that yields nothing.
func ParseChannelPage(r io.Reader) (*Channel, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	ch := &Channel{}
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, initialDataMarker)
		if idx < 0 {
			return true
		}
		var data ytInitialData
		if err := json.NewDecoder(strings.NewReader(text[idx+len(initialDataMarker):])).Decode(&data); err != nil {
			return true
		}
		ch.Videos = append(ch.Videos, data.videos()...)
		return false
	})

	if len(ch.Videos) == 0 {
		seen := make(map[string]bool)
		doc.Find(`a[href*="/watch?v="]`).Each(func(_ int, s *goquery.Selection) {
			m := watchLinkRE.FindStringSubmatch(s.AttrOr("href", ""))
			if len(m) != 2 || seen[m[1]] {
				return
			}
			seen[m[1]] = true
			title := s.AttrOr("title", "")
			if title == "" {
				title = strings.TrimSpace(s.Text())
			}
			if title == "" {
				title = defaultVideoTitle
			}
			ch.Videos = append(ch.Videos, ChannelVideo{VideoID: m[1], Title: title})
		})
	}

	ch.Name = doc.Find(`meta[property="og:title"]`).AttrOr("content", "")
	if ch.Name == "" {
		ch.Name = strings.TrimSpace(strings.Split(doc.Find("title").First().Text(), " - YouTube")[0])
	}
	if ch.Name == "" {
		ch.Name = defaultChannelName
	}

	if len(ch.Videos) > MaxChannelVideos {
		ch.Videos = ch.Videos[:MaxChannelVideos]
	}
	return ch, nil
}

func channelVideosURL(channelURL string) string {
	if strings.Contains(channelURL, "?") {
		return channelURL + "&" + channelVideosParams
	}
	return strings.TrimRight(channelURL, "/") + "/videos?" + channelVideosParams
}

// Channel downloads and parses the videos page of channelURL, most popular first.
func (c *Client) Channel(ctx context.Context, channelURL string) (*Channel, error) {
	pageURL := channelVideosURL(channelURL)

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create channel request: %w", err)
		}
		req.Header.Set("User-Agent", channelUserAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get channel page: %w", err)
	}

	ch, err := ParseChannelPage(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	ch.URL = channelURL
	return ch, nil
}
