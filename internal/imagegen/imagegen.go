// Package imagegen builds links to a text-to-image service. The service
// renders the picture when the link is loaded, so no request is made here.
package imagegen

import (
	"net/url"
	"strconv"
	"strings"

	domainerrors "github.com/foruapp/foru/internal/errors"
)

// DefaultBaseURL is the public image generation endpoint.
const DefaultBaseURL = "https://image.pollinations.ai"

// MaxPromptLength bounds prompts in bytes.
const MaxPromptLength = 500

// Client builds image URLs.
type Client struct {
	BaseURL string
	Width   int
	Height  int
}

// New returns a client for baseURL with a square 768px default size.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Width: 768, Height: 768}
}

// URL returns the image URL for prompt. The seed makes repeated prompts
// produce different pictures.
func (c *Client) URL(prompt string, seed int64) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domainerrors.Validation("prompt is required")
	}
	if len(prompt) > MaxPromptLength {
		return "", domainerrors.Validationf("prompt is longer than %d characters", MaxPromptLength)
	}

	q := url.Values{}
	q.Set("width", strconv.Itoa(c.Width))
	q.Set("height", strconv.Itoa(c.Height))
	q.Set("seed", strconv.FormatInt(seed, 10))
	q.Set("nologo", "true")

	return c.BaseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode(), nil
}
