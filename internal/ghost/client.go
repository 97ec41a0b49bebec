// Package ghost is a minimal Ghost Admin API client: short-lived JWT
// auth, image/media uploads and post creation.
package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/valenzanico/instagrampostwatcher/internal/composer"
)

const acceptVersion = "v5.0"

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
}

// PostOptions enumerates the post-creation fields this client supports.
type PostOptions struct {
	Title     string
	Tags      []string
	Status    string
	Mobiledoc composer.Mobiledoc
}

// PostHandle identifies a created post, for logging and confirmation only.
type PostHandle struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Client calls the Ghost Admin API. Tokens are signed per request from
// the admin key's id/secret pair and expire after five minutes.
type Client struct {
	baseURL      string
	keyID        string
	keySecret    []byte
	apiClient    *http.Client // metadata calls, short timeout
	uploadClient *http.Client // media uploads, long timeout
}

// New creates a client from the site URL and an admin API key in
// "id:hexsecret" form.
func New(baseURL, adminAPIKey string, apiTimeout, uploadTimeout time.Duration) (*Client, error) {
	id, secret, ok := strings.Cut(adminAPIKey, ":")
	if !ok {
		return nil, fmt.Errorf("admin API key must be in id:secret form")
	}

	secretBytes, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode admin API secret: %w", err)
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		keyID:        id,
		keySecret:    secretBytes,
		apiClient:    &http.Client{Timeout: apiTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
	}, nil
}

func (c *Client) token() (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	})
	tok.Header["kid"] = c.keyID

	signed, err := tok.SignedString(c.keySecret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// UploadImage uploads a local image and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	return c.upload(ctx, "/ghost/api/admin/images/upload/", path, imageMIMETypes, "image/jpeg", "images")
}

// UploadVideo uploads a local video through the media endpoint and
// returns its public URL.
func (c *Client) UploadVideo(ctx context.Context, path string) (string, error) {
	return c.upload(ctx, "/ghost/api/admin/media/upload/", path, videoMIMETypes, "video/mp4", "media")
}

func (c *Client) upload(ctx context.Context, endpoint, path string, mimeTypes map[string]string, fallbackMIME, resultKey string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	mimeType, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mimeType = fallbackMIME
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(path)))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &body)
	if err != nil {
		return "", err
	}
	if err := c.authorize(req); err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: %s: %s", path, resp.Status, readBody(resp.Body))
	}

	var result map[string][]struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	entries := result[resultKey]
	if len(entries) == 0 {
		return "", fmt.Errorf("upload %s: empty %s in response", path, resultKey)
	}
	return entries[0].URL, nil
}

// CreatePost creates a post from explicit options and returns its handle.
func (c *Client) CreatePost(ctx context.Context, opts PostOptions) (*PostHandle, error) {
	mobiledocJSON, err := json.Marshal(opts.Mobiledoc)
	if err != nil {
		return nil, fmt.Errorf("marshal mobiledoc: %w", err)
	}

	tags := make([]map[string]string, 0, len(opts.Tags))
	for _, t := range opts.Tags {
		tags = append(tags, map[string]string{"name": t})
	}

	payload := map[string]any{
		"posts": []map[string]any{{
			"title":     opts.Title,
			"status":    opts.Status,
			"tags":      tags,
			"mobiledoc": string(mobiledocJSON),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/ghost/api/admin/posts/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create post: %s: %s", resp.Status, readBody(resp.Body))
	}

	var result struct {
		Posts []PostHandle `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}
	if len(result.Posts) == 0 {
		return nil, fmt.Errorf("create post: empty posts in response")
	}
	return &result.Posts[0], nil
}

func (c *Client) authorize(req *http.Request) error {
	token, err := c.token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Accept-Version", acceptVersion)
	return nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 2048))
	return string(bytes.TrimSpace(b))
}
