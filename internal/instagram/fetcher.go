package instagram

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
)

// Feed is the remote content source the fetcher scans.
type Feed interface {
	RecentPosts(ctx context.Context, account string) ([]Post, error)
	Download(ctx context.Context, post Post, dir string) error
}

// PublishedSet answers whether a post has already been published. The
// fetcher only reads it; recording is the publisher's job.
type PublishedSet interface {
	Exists(ctx context.Context, shortcode string) (bool, error)
}

// NewPost describes one unseen post staged for publishing. Images and
// Videos hold local file paths in filename-sorted order.
type NewPost struct {
	Shortcode string
	Caption   string
	Dir       string
	Images    []string
	Videos    []string
}

// Fetcher stages unseen posts from an account's feed.
type Fetcher struct {
	feed      Feed
	published PublishedSet
	account   string
	mediaDir  string
}

// NewFetcher creates a fetcher for the given account. Media is staged
// under mediaDir/<shortcode>/.
func NewFetcher(feed Feed, published PublishedSet, account, mediaDir string) *Fetcher {
	return &Fetcher{
		feed:      feed,
		published: published,
		account:   account,
		mediaDir:  mediaDir,
	}
}

// FetchNew scans at most limit feed entries, newest first, and returns a
// descriptor for each post that is neither pinned nor already published.
// The cap is on entries examined, not on new posts found. Results keep
// scan order (newest first); callers wanting oldest-first must reverse.
func (f *Fetcher) FetchNew(ctx context.Context, limit int) ([]NewPost, error) {
	posts, err := f.feed.RecentPosts(ctx, f.account)
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}

	var fresh []NewPost
	for i, post := range posts {
		if i >= limit {
			break
		}
		if post.Pinned {
			continue
		}

		exists, err := f.published.Exists(ctx, post.Shortcode)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		dir := filepath.Join(f.mediaDir, post.Shortcode)
		if err := f.feed.Download(ctx, post, dir); err != nil {
			// Partial staging is acceptable; whatever landed on disk
			// is still handed to the publisher, which skips posts
			// with no usable media.
			log.Printf("[fetcher] Download incomplete for %s: %v", post.Shortcode, err)
		}

		images, videos, err := listMedia(dir)
		if err != nil {
			log.Printf("[fetcher] Cannot read staged media for %s: %v", post.Shortcode, err)
			continue
		}

		fresh = append(fresh, NewPost{
			Shortcode: post.Shortcode,
			Caption:   post.Caption,
			Dir:       dir,
			Images:    images,
			Videos:    videos,
		})
	}

	return fresh, nil
}

func listMedia(dir string) (images, videos []string, err error) {
	images, err = filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, nil, err
	}
	videos, err = filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(images)
	sort.Strings(videos)
	return images, videos, nil
}
