package instagram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeFeed serves canned posts and stages a single image per download.
type fakeFeed struct {
	posts       []Post
	downloadErr map[string]error
	downloads   []string
}

func (f *fakeFeed) RecentPosts(ctx context.Context, account string) ([]Post, error) {
	return f.posts, nil
}

func (f *fakeFeed) Download(ctx context.Context, post Post, dir string) error {
	f.downloads = append(f.downloads, post.Shortcode)
	if err := f.downloadErr[post.Shortcode]; err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "01.jpg"), []byte("jpeg"), 0o644)
}

// fakeSet is an in-memory published set.
type fakeSet struct {
	seen map[string]bool
	err  error
}

func (s *fakeSet) Exists(ctx context.Context, shortcode string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.seen[shortcode], nil
}

func feedPosts(n int) []Post {
	posts := make([]Post, n)
	for i := range posts {
		posts[i] = Post{
			Shortcode: fmt.Sprintf("post%02d", i),
			Caption:   fmt.Sprintf("caption %d", i),
			Media:     []Media{{URL: "https://cdn/img.jpg"}},
		}
	}
	return posts
}

func TestFetchNewScanCap(t *testing.T) {
	feed := &fakeFeed{posts: feedPosts(6)}
	fetcher := NewFetcher(feed, &fakeSet{seen: map[string]bool{}}, "acct", t.TempDir())

	fresh, err := fetcher.FetchNew(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(fresh) != 5 {
		t.Fatalf("expected 5 descriptors from a 6-post feed with limit 5, got %d", len(fresh))
	}
	// Scan order is preserved: newest first.
	for i, p := range fresh {
		if want := fmt.Sprintf("post%02d", i); p.Shortcode != want {
			t.Fatalf("descriptor %d = %s, want %s", i, p.Shortcode, want)
		}
	}
}

func TestFetchNewCapCountsExaminedNotFound(t *testing.T) {
	posts := feedPosts(6)
	// First four already published; the cap still stops the scan at 5.
	seen := map[string]bool{"post00": true, "post01": true, "post02": true, "post03": true}

	feed := &fakeFeed{posts: posts}
	fetcher := NewFetcher(feed, &fakeSet{seen: seen}, "acct", t.TempDir())

	fresh, err := fetcher.FetchNew(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected only post04, got %d descriptors", len(fresh))
	}
	if fresh[0].Shortcode != "post04" {
		t.Fatalf("got %s, want post04", fresh[0].Shortcode)
	}
}

func TestFetchNewSkipsStoredPosts(t *testing.T) {
	feed := &fakeFeed{posts: feedPosts(3)}
	seen := map[string]bool{"post01": true}
	fetcher := NewFetcher(feed, &fakeSet{seen: seen}, "acct", t.TempDir())

	fresh, err := fetcher.FetchNew(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	for _, p := range fresh {
		if p.Shortcode == "post01" {
			t.Fatal("stored post included in batch")
		}
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(fresh))
	}
}

func TestFetchNewSkipsPinnedPosts(t *testing.T) {
	posts := feedPosts(3)
	posts[0].Pinned = true

	feed := &fakeFeed{posts: posts}
	fetcher := NewFetcher(feed, &fakeSet{seen: map[string]bool{}}, "acct", t.TempDir())

	fresh, err := fetcher.FetchNew(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	for _, p := range fresh {
		if p.Shortcode == "post00" {
			t.Fatal("pinned post included in batch")
		}
	}
	for _, code := range feed.downloads {
		if code == "post00" {
			t.Fatal("pinned post media downloaded")
		}
	}
}

func TestFetchNewStagesMedia(t *testing.T) {
	mediaDir := t.TempDir()
	feed := &fakeFeed{posts: feedPosts(1)}
	fetcher := NewFetcher(feed, &fakeSet{seen: map[string]bool{}}, "acct", mediaDir)

	fresh, err := fetcher.FetchNew(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(fresh))
	}

	p := fresh[0]
	if p.Dir != filepath.Join(mediaDir, "post00") {
		t.Fatalf("unexpected working dir %s", p.Dir)
	}
	if len(p.Images) != 1 || filepath.Base(p.Images[0]) != "01.jpg" {
		t.Fatalf("unexpected staged images %v", p.Images)
	}
	if len(p.Videos) != 0 {
		t.Fatalf("unexpected staged videos %v", p.Videos)
	}
}

func TestFetchNewToleratesDownloadFailure(t *testing.T) {
	feed := &fakeFeed{
		posts:       feedPosts(2),
		downloadErr: map[string]error{"post00": errors.New("network down")},
	}
	fetcher := NewFetcher(feed, &fakeSet{seen: map[string]bool{}}, "acct", t.TempDir())

	fresh, err := fetcher.FetchNew(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// Both descriptors are returned; the failed one simply has no media.
	if len(fresh) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(fresh))
	}
	if len(fresh[0].Images)+len(fresh[0].Videos) != 0 {
		t.Fatal("failed download should stage nothing")
	}
	if len(fresh[1].Images) != 1 {
		t.Fatal("second post should still be staged")
	}
}

func TestFetchNewPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("post store unavailable")
	feed := &fakeFeed{posts: feedPosts(2)}
	fetcher := NewFetcher(feed, &fakeSet{err: storeErr}, "acct", t.TempDir())

	_, err := fetcher.FetchNew(context.Background(), 5)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(feed.downloads) != 0 {
		t.Fatal("no media should be downloaded when the store is unreachable")
	}
}
