// Package instagram fetches an account's recent feed through Instagram's
// public web profile API and downloads post media to local staging
// directories.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultBaseURL = "https://www.instagram.com"

	// App ID sent by the instagram.com web client; required for the
	// web_profile_info endpoint to answer with JSON.
	webAppID = "936619743392459"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Media is one downloadable item belonging to a post.
type Media struct {
	URL   string
	Video bool
}

// Post is one entry of an account's feed, newest-first.
type Post struct {
	Shortcode string
	Caption   string
	Pinned    bool
	Media     []Media
}

// Client talks to Instagram's public web API.
type Client struct {
	baseURL        string
	httpClient     *http.Client // metadata calls, short timeout
	downloadClient *http.Client // media downloads, context-bounded
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different host (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the client used for metadata requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a feed client. Metadata requests share one short
// timeout; media downloads use a client with no overall timeout, since a
// large video can legitimately take minutes — they are bounded by the
// caller's context instead.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		downloadClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecentPosts returns the account's most recent feed entries, newest first.
func (c *Client) RecentPosts(ctx context.Context, account string) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s",
		c.baseURL, url.QueryEscape(account))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-IG-App-ID", webAppID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", account, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile %s: unexpected status %s", account, resp.Status)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", account, err)
	}

	edges := profile.Data.User.TimelineMedia.Edges
	posts := make([]Post, 0, len(edges))
	for _, edge := range edges {
		posts = append(posts, edge.Node.toPost())
	}
	return posts, nil
}

// Download fetches every media item of post into dir, creating it if
// needed. Files are named by position (01.jpg, 02.mp4, ...) so sorted
// directory listings preserve carousel order. Items whose file already
// exists with content are skipped, which lets a retried post reuse media
// staged by an earlier failed cycle.
func (c *Client) Download(ctx context.Context, post Post, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create post dir: %w", err)
	}

	for i, m := range post.Media {
		ext := ".jpg"
		if m.Video {
			ext = ".mp4"
		}
		path := filepath.Join(dir, fmt.Sprintf("%02d%s", i+1, ext))

		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			continue
		}

		if err := c.downloadFile(ctx, m.URL, path); err != nil {
			return fmt.Errorf("download %s item %d: %w", post.Shortcode, i+1, err)
		}
	}
	return nil
}

func (c *Client) downloadFile(ctx context.Context, mediaURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// profileResponse mirrors the subset of the web_profile_info payload we
// consume.
type profileResponse struct {
	Data struct {
		User struct {
			TimelineMedia struct {
				Edges []struct {
					Node mediaNode `json:"node"`
				} `json:"edges"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
}

type mediaNode struct {
	Shortcode      string `json:"shortcode"`
	IsVideo        bool   `json:"is_video"`
	DisplayURL     string `json:"display_url"`
	VideoURL       string `json:"video_url"`
	PinnedForUsers []any  `json:"pinned_for_users"`
	CaptionEdge    struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	SidecarEdge struct {
		Edges []struct {
			Node struct {
				IsVideo    bool   `json:"is_video"`
				DisplayURL string `json:"display_url"`
				VideoURL   string `json:"video_url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`
}

func (n mediaNode) toPost() Post {
	p := Post{
		Shortcode: n.Shortcode,
		Pinned:    len(n.PinnedForUsers) > 0,
	}
	if len(n.CaptionEdge.Edges) > 0 {
		p.Caption = n.CaptionEdge.Edges[0].Node.Text
	}

	if len(n.SidecarEdge.Edges) > 0 {
		// Carousel: one media item per child.
		for _, child := range n.SidecarEdge.Edges {
			p.Media = append(p.Media, childMedia(child.Node.IsVideo, child.Node.DisplayURL, child.Node.VideoURL))
		}
		return p
	}

	p.Media = append(p.Media, childMedia(n.IsVideo, n.DisplayURL, n.VideoURL))
	return p
}

func childMedia(isVideo bool, displayURL, videoURL string) Media {
	if isVideo {
		return Media{URL: videoURL, Video: true}
	}
	return Media{URL: displayURL}
}
