// Package composer turns a staged post into the payload shapes the two
// publishing targets expect. It is pure: no I/O, no clocks beyond the
// caller-supplied time.
package composer

import (
	"fmt"
	"time"
)

// Telegram attaches a media-group caption to exactly one item and caps
// its length.
const telegramCaptionLimit = 1024

// Mobiledoc is the block document Ghost stores post content as.
type Mobiledoc struct {
	Version  string   `json:"version"`
	Atoms    []any    `json:"atoms"`
	Cards    []Card   `json:"cards"`
	Markups  []any    `json:"markups"`
	Sections [][2]int `json:"sections"`
}

// Card is one content block: a name plus its payload.
type Card [2]any

// BatchItem is one entry of a Telegram media group.
type BatchItem struct {
	Path    string
	Video   bool
	Caption string
}

// BlogDocument builds the mobiledoc for a post: an optional markdown card
// for the caption, one image card per uploaded image, one HTML video card
// per video URL, each referenced positionally by the sections array.
func BlogDocument(caption string, imageURLs, videoURLs []string) Mobiledoc {
	var cards []Card

	if caption != "" {
		cards = append(cards, Card{"markdown", map[string]any{
			"markdown": caption,
		}})
	}

	for _, u := range imageURLs {
		cards = append(cards, Card{"image", map[string]any{
			"src":       u,
			"alt":       "",
			"cardWidth": "wide",
		}})
	}

	for _, u := range videoURLs {
		cards = append(cards, Card{"html", map[string]any{
			"html": fmt.Sprintf(
				`<figure class="kg-card kg-video-card kg-width-wide">`+
					`<video controls preload="metadata" src="%s" style="width:100%%;height:auto;"></video>`+
					`</figure>`, u),
		}})
	}

	sections := make([][2]int, len(cards))
	for i := range cards {
		sections[i] = [2]int{10, i}
	}

	return Mobiledoc{
		Version:  "0.3.1",
		Atoms:    []any{},
		Cards:    cards,
		Markups:  []any{},
		Sections: sections,
	}
}

// MediaBatch builds a Telegram media group from staged files. The caption
// rides on the first image, or on the first video when there are no
// images; every other item carries none.
func MediaBatch(caption string, images, videos []string) []BatchItem {
	items := make([]BatchItem, 0, len(images)+len(videos))

	for i, path := range images {
		item := BatchItem{Path: path}
		if i == 0 {
			item.Caption = caption
		}
		items = append(items, item)
	}

	for i, path := range videos {
		item := BatchItem{Path: path, Video: true}
		if i == 0 && len(images) == 0 {
			item.Caption = caption
		}
		items = append(items, item)
	}

	return items
}

// Title derives the blog post title: the first 30 characters of the
// caption plus an ellipsis, or a dated fallback when there is no caption.
func Title(caption string, now time.Time) string {
	if caption == "" {
		return "instagram post " + now.Format("2006-01-02 15:04")
	}

	runes := []rune(caption)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return string(runes) + "..."
}

// ChannelCaption builds the Telegram caption: the post caption followed by
// a permalink, truncated so the whole thing fits the media-group caption
// limit. The limit counts characters, and truncation is on rune
// boundaries so the result stays valid UTF-8.
func ChannelCaption(caption, shortcode string) string {
	link := fmt.Sprintf("\nhttps://instagram.com/p/%s/", shortcode)
	if caption == "" {
		return link
	}

	runes := []rune(caption)
	if len(runes)+len(link) > telegramCaptionLimit {
		return string(runes[:telegramCaptionLimit-4-len(link)]) + "..." + link
	}
	return caption + link
}
