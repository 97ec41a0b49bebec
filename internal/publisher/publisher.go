// Package publisher drives the per-post publish workflow: compose,
// upload, create the remote posts, record success, clean up staging.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/valenzanico/instagrampostwatcher/internal/composer"
	"github.com/valenzanico/instagrampostwatcher/internal/ghost"
	"github.com/valenzanico/instagrampostwatcher/internal/instagram"
	"github.com/valenzanico/instagrampostwatcher/internal/store"
)

// Fetcher stages unseen posts for publishing.
type Fetcher interface {
	FetchNew(ctx context.Context, limit int) ([]instagram.NewPost, error)
}

// Blog is the Ghost side of the workflow.
type Blog interface {
	UploadImage(ctx context.Context, path string) (string, error)
	UploadVideo(ctx context.Context, path string) (string, error)
	CreatePost(ctx context.Context, opts ghost.PostOptions) (*ghost.PostHandle, error)
}

// Channel is the Telegram side of the workflow.
type Channel interface {
	SendMediaBatch(items []composer.BatchItem) error
}

// Recorder is the writable post store. The publisher is the only
// component that writes it.
type Recorder interface {
	Insert(ctx context.Context, shortcode, caption string) (bool, error)
}

// Publisher coordinates one publish cycle.
type Publisher struct {
	fetcher  Fetcher
	blog     Blog
	channel  Channel
	recorder Recorder

	scanLimit int
	tags      []string
	status    string

	now func() time.Time
}

// New creates a Publisher.
func New(fetcher Fetcher, blog Blog, channel Channel, recorder Recorder, scanLimit int, tags []string, status string) *Publisher {
	return &Publisher{
		fetcher:   fetcher,
		blog:      blog,
		channel:   channel,
		recorder:  recorder,
		scanLimit: scanLimit,
		tags:      tags,
		status:    status,
		now:       time.Now,
	}
}

// RunCycle fetches new posts and publishes each one. Per-post failures
// are logged and do not stop the batch; a storage failure aborts the
// cycle so nothing is published without being recordable.
func (p *Publisher) RunCycle(ctx context.Context) error {
	posts, err := p.fetcher.FetchNew(ctx, p.scanLimit)
	if err != nil {
		return fmt.Errorf("fetch new posts: %w", err)
	}

	if len(posts) == 0 {
		log.Println("[publisher] No new posts")
		return nil
	}
	log.Printf("[publisher] Found %d new post(s)", len(posts))

	// Oldest first, so an interrupted cycle leaves the earliest posts done.
	reverse(posts)

	for _, post := range posts {
		if err := p.publishOne(ctx, post); err != nil {
			if errors.Is(err, store.ErrUnavailable) {
				return err
			}
			log.Printf("[publisher] Post %s failed: %v", post.Shortcode, err)
		}
	}
	return nil
}

func (p *Publisher) publishOne(ctx context.Context, post instagram.NewPost) error {
	if len(post.Images) == 0 && len(post.Videos) == 0 {
		// Nothing staged; keep the directory for the next attempt.
		return fmt.Errorf("no media staged in %s", post.Dir)
	}

	// Telegram first: it is the authoritative published signal.
	caption := composer.ChannelCaption(post.Caption, post.Shortcode)
	batch := composer.MediaBatch(caption, post.Images, post.Videos)

	chatErr := p.channel.SendMediaBatch(batch)
	if chatErr != nil {
		log.Printf("[publisher] Telegram send failed for %s: %v", post.Shortcode, chatErr)
	} else {
		log.Printf("[publisher] Sent media group for %s to channel", post.Shortcode)

		inserted, err := p.recorder.Insert(ctx, post.Shortcode, post.Caption)
		if err != nil {
			return err
		}
		if !inserted {
			log.Printf("[publisher] Post %s was already recorded", post.Shortcode)
		}
	}

	// Ghost is best-effort either way.
	p.publishToBlog(ctx, post)

	if chatErr != nil {
		// Not recorded: leave staged media in place so the next cycle
		// can retry without re-downloading.
		return fmt.Errorf("send to channel: %w", chatErr)
	}

	if err := os.RemoveAll(post.Dir); err != nil {
		log.Printf("[publisher] Cleanup of %s failed: %v", post.Dir, err)
	} else {
		log.Printf("[publisher] Deleted folder %s after publishing", post.Dir)
	}
	return nil
}

// publishToBlog uploads media and creates the Ghost post. Individual
// upload failures only drop that item from the composed content.
func (p *Publisher) publishToBlog(ctx context.Context, post instagram.NewPost) {
	var imageURLs []string
	for _, path := range post.Images {
		url, err := p.blog.UploadImage(ctx, path)
		if err != nil {
			log.Printf("[publisher] Image upload failed for %s: %v", path, err)
			continue
		}
		imageURLs = append(imageURLs, url)
	}

	var videoURLs []string
	for _, path := range post.Videos {
		url, err := p.blog.UploadVideo(ctx, path)
		if err != nil {
			log.Printf("[publisher] Video upload failed for %s: %v", path, err)
			continue
		}
		videoURLs = append(videoURLs, url)
	}

	handle, err := p.blog.CreatePost(ctx, ghost.PostOptions{
		Title:     composer.Title(post.Caption, p.now()),
		Tags:      p.tags,
		Status:    p.status,
		Mobiledoc: composer.BlogDocument(post.Caption, imageURLs, videoURLs),
	})
	if err != nil {
		log.Printf("[publisher] Ghost post failed for %s: %v", post.Shortcode, err)
		return
	}
	log.Printf("[publisher] Created Ghost post: %s (%s)", handle.Title, handle.URL)
}

func reverse(posts []instagram.NewPost) {
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
}
