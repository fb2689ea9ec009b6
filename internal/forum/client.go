package forum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/discourse-tools/dsc/pkg/config"
)

type Client struct {
	baseURL     string
	apiKey      string
	apiUsername string
	http        *http.Client
}

func New(d config.Discourse) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseurl is required for %s", d.Name)
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(d.APIKey),
		apiUsername: strings.TrimSpace(d.APIUsername),
		http:        http.DefaultClient,
	}, nil
}

type aboutResponse struct {
	About struct {
		Title            string `json:"title"`
		Version          string `json:"version"`
		InstalledVersion string `json:"installed_version"`
	} `json:"about"`
}

type createPostResponse struct {
	ID      uint64 `json:"id"`
	TopicID uint64 `json:"topic_id"`
}

type createPostForm struct {
	TopicID uint64 `url:"topic_id"`
	Raw     string `url:"raw"`
}

// FetchVersion returns the forum software version, read from about.json or,
// failing that, from the generator meta tag of the home page.
func (c *Client) FetchVersion(ctx context.Context) (string, error) {
	var errs []error

	var about aboutResponse
	if err := c.getJSON(ctx, "/about.json", &about); err != nil {
		errs = append(errs, err)
	} else if about.About.Version != "" {
		return about.About.Version, nil
	} else if about.About.InstalledVersion != "" {
		return about.About.InstalledVersion, nil
	}

	body, err := c.get(ctx, "/")
	if err != nil {
		errs = append(errs, err)
	} else if content, ok := metaContent(body, "generator"); ok {
		if version := generatorVersion(content); version != "" {
			return version, nil
		}
	}

	if len(errs) == 0 {
		return "", errors.New("version not advertised")
	}
	return "", errors.Join(errs...)
}

// FetchTitle returns the site title, read from about.json or, failing that,
// from the <title> of the home page.
func (c *Client) FetchTitle(ctx context.Context) (string, error) {
	var about aboutResponse
	if err := c.getJSON(ctx, "/about.json", &about); err == nil && strings.TrimSpace(about.About.Title) != "" {
		return strings.TrimSpace(about.About.Title), nil
	}

	body, err := c.get(ctx, "/")
	if err != nil {
		return "", err
	}
	if title, ok := pageTitle(body); ok {
		return title, nil
	}
	return "", errors.New("site title not found")
}

// CreatePost replies to a topic and returns the new post ID.
func (c *Client) CreatePost(ctx context.Context, topicID uint64, raw string) (uint64, error) {
	values, err := query.Values(createPostForm{TopicID: topicID, Raw: raw})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts.json", strings.NewReader(values.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("creating post: %w", err)
	}

	var created createPostResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, fmt.Errorf("parsing create post response: %w", err)
	}
	return created.ID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" && c.apiUsername != "" {
		req.Header.Set("Api-Key", c.apiKey)
		req.Header.Set("Api-Username", c.apiUsername)
	}

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s failed with %s: %s", req.Method, req.URL.Path, response.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
