// Package web retrieves raw factual content for questions no domain can
// answer. With a SerpAPI key it searches and scrapes result pages; without
// one it falls back to a knowledge lookup through the generation service.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/pkg/logger"
)

const lookupPrompt = "Bạn là trợ lý tìm kiếm thông tin. Hãy tìm kiếm thông tin liên quan đến câu hỏi của người dùng và trả về kết quả chính xác nhất. Trả lời bằng tiếng Việt."

type Generator interface {
	CompleteLight(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Client struct {
	generator  Generator
	httpClient *http.Client
	serpAPIKey string
	maxResults int
}

func NewClient(generator Generator, serpAPIKey string, maxResults, timeoutSec int) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeoutSec <= 0 {
		timeoutSec = 10
	}

	return &Client{
		generator:  generator,
		serpAPIKey: serpAPIKey,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

// Disabled is the no-op lookup used when web search is turned off. Its
// error moves the fallback chain straight to the next strategy.
type Disabled struct{}

func (Disabled) Lookup(ctx context.Context, question string) (string, error) {
	return "", fmt.Errorf("web lookup is disabled")
}

// Lookup returns raw factual content for the question. The content is not
// styled for the assistant persona; the caller restyles it.
func (c *Client) Lookup(ctx context.Context, question string) (string, error) {
	if c.serpAPIKey != "" {
		content, err := c.searchAndScrape(ctx, question)
		if err == nil && content != "" {
			return content, nil
		}
		logger.Warn("Search API lookup failed, falling back to generation", zap.Error(err))
	}

	content, err := c.generator.CompleteLight(ctx, lookupPrompt,
		fmt.Sprintf("Tìm kiếm thông tin về: %s", question))
	if err != nil {
		return "", fmt.Errorf("lookup generation failed: %w", err)
	}
	return content, nil
}

func (c *Client) searchAndScrape(ctx context.Context, question string) (string, error) {
	params := url.Values{}
	params.Add("q", buildSearchQuery(question))
	params.Add("api_key", c.serpAPIKey)
	params.Add("num", fmt.Sprintf("%d", c.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://serpapi.com/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var searchResp struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var b strings.Builder
	for i, r := range searchResp.OrganicResults {
		if i >= c.maxResults {
			break
		}

		content := r.Snippet
		if scraped, err := c.scrapeContent(ctx, r.Link); err == nil && scraped != "" {
			content = scraped
		}

		fmt.Fprintf(&b, "[%s]\n%s\n\n", r.Title, content)
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", fmt.Errorf("search returned no usable results")
	}

	logger.Info("Web lookup completed", zap.Int("results", len(searchResp.OrganicResults)))

	return result, nil
}

func (c *Client) scrapeContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())

	if len(text) > 2000 {
		text = text[:2000]
	}
	return text, nil
}

// buildSearchQuery keeps the question's salient terms (nouns and proper
// nouns) so the search engine is not fed filler words. When tokenization
// fails the original question is used untouched.
func buildSearchQuery(question string) string {
	doc, err := prose.NewDocument(question)
	if err != nil {
		return question
	}

	var terms []string
	for _, tok := range doc.Tokens() {
		if strings.HasPrefix(tok.Tag, "NN") || strings.HasPrefix(tok.Tag, "JJ") || tok.Tag == "CD" {
			terms = append(terms, tok.Text)
		}
	}

	if len(terms) < 2 {
		return question
	}
	return strings.Join(terms, " ")
}
