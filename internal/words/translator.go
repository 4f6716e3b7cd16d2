package words

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
)

// Translator returns, per source word, the list of acceptable translated
// strings. An error means the service is unreachable; the match layer
// turns that into the service-unavailable path.
type Translator interface {
	Translate(ctx context.Context, words []string) (map[string][]string, error)
}

const translationCacheSize = 4096

// HTTPTranslator translates Italian words to English through a
// MyMemory-style GET endpoint. Vendor calls run behind a circuit breaker
// so a dead vendor fails matches fast instead of stalling every player,
// and per-word results are kept in an LRU cache since the dictionary
// resamples the same words across matches.
type HTTPTranslator struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	cache   *lru.Cache[string, []string]
}

// NewHTTPTranslator creates a translator against baseURL.
func NewHTTPTranslator(baseURL string) *HTTPTranslator {
	cache, _ := lru.New[string, []string](translationCacheSize)

	return &HTTPTranslator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "translator",
			Timeout: 30 * time.Second,
		}),
		cache: cache,
	}
}

// Translate fetches translations for every word. Fails on the first
// vendor error: a match with half a vocabulary is not playable.
func (t *HTTPTranslator) Translate(ctx context.Context, words []string) (map[string][]string, error) {
	out := make(map[string][]string, len(words))
	for _, word := range words {
		if cached, ok := t.cache.Get(word); ok {
			out[word] = cached
			continue
		}

		res, err := t.breaker.Execute(func() (any, error) {
			return t.fetchWord(ctx, word)
		})
		if err != nil {
			return nil, fmt.Errorf("translating %q: %w", word, err)
		}

		translations := res.([]string)
		t.cache.Add(word, translations)
		out[word] = translations
	}
	return out, nil
}

// vendorResponse is the subset of the vendor's JSON document we decode.
type vendorResponse struct {
	Matches []struct {
		Translation string `json:"translation"`
	} `json:"matches"`
}

func (t *HTTPTranslator) fetchWord(ctx context.Context, word string) ([]string, error) {
	u := fmt.Sprintf("%s?q=%s&langpair=it|en", t.baseURL, url.QueryEscape(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling vendor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vendor returned status %d", resp.StatusCode)
	}

	var doc vendorResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding vendor response: %w", err)
	}

	translations := make([]string, 0, len(doc.Matches))
	for _, m := range doc.Matches {
		translations = append(translations, Normalize(m.Translation))
	}
	return translations, nil
}

// Normalize lowercases s and strips every character that is not a lower
// case ASCII letter or a space. Answers are compared against these
// normalized forms verbatim.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
