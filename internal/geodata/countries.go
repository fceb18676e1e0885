package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/cache"
	"github.com/lcvriend/toponym-extraction/internal/model"
)

// CountryLoader fetches the country metadata table and exposes it as a
// mapping from display name to country record. Responses are cached
// (memory + disk) so an unreachable upstream only fails when no cache
// exists; a fetch failure is reported, not retried.
type CountryLoader struct {
	url       string
	language  string
	userAgent string
	maxBytes  int64
	client    *http.Client
	store     *cache.LayeredCache
}

// NewCountryLoader creates a country loader for the given source URL and
// display language.
func NewCountryLoader(url, language string, http_ model.HTTPConfig, cacheDir string) *CountryLoader {
	return &CountryLoader{
		url:       url,
		language:  language,
		userAgent: http_.UserAgent,
		maxBytes:  http_.MaxBodyBytes,
		client:    &http.Client{Timeout: http_.Timeout},
		store:     cache.NewLayeredCache(time.Hour, cacheDir, 30*24*time.Hour),
	}
}

// Load returns the country mapping. The display name is the English name
// for "en"/"us", otherwise the configured translation; countries without
// that translation are skipped.
func (l *CountryLoader) Load(ctx context.Context) (model.CountryMap, error) {
	key := cache.Key("countries:" + l.url)
	if data, ok := l.store.Get(key); ok {
		var countries []model.Country
		if err := json.Unmarshal(data, &countries); err == nil {
			return l.toMap(countries), nil
		}
		_ = l.store.Delete(key)
	}

	data, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var countries []model.Country
	if err := json.Unmarshal(data, &countries); err != nil {
		return nil, fmt.Errorf("parse country data: %w", err)
	}

	_ = l.store.Set(key, data, 0)
	return l.toMap(countries), nil
}

// Invalidate drops the cached country table so the next Load refetches.
func (l *CountryLoader) Invalidate() error {
	return l.store.Delete(cache.Key("countries:" + l.url))
}

func (l *CountryLoader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrFetchFailed, l.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", model.ErrFetchFailed, l.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read country data: %w", err)
	}
	return body, nil
}

func (l *CountryLoader) toMap(countries []model.Country) model.CountryMap {
	m := make(model.CountryMap, len(countries))
	english := l.language == "en" || l.language == "us"
	for _, c := range countries {
		name := c.Name
		if !english {
			translated, ok := c.Translations[l.language]
			if !ok || translated == "" {
				continue
			}
			name = translated
		}
		m[name] = c
	}
	return m
}

// InjectCountryAliases maps every supplied alias onto the record of its
// canonical key. Unknown keys are ignored.
func InjectCountryAliases(m model.CountryMap, aliases map[string][]string) {
	for key, alts := range aliases {
		c, ok := m[key]
		if !ok {
			continue
		}
		for _, alt := range alts {
			m[alt] = c
		}
	}
}
