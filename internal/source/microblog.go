package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

// MicroblogAdapter sources candidates from a public microblogging
// platform's profile search (spec.md §4.3's "microblog source"). No
// stable public API is assumed, so profile pages are parsed directly
// via goquery, mirroring the reference service's DOM-cleaning idiom.
type MicroblogAdapter struct {
	base
	httpClient *http.Client
}

func NewMicroblogAdapter(c *cache.Cache, l *ratelimit.Limiter, cfg config.SourceConfig, log *slog.Logger) *MicroblogAdapter {
	return &MicroblogAdapter{
		base:       newBase(config.SourceMicroblog, c, l, cfg, log),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *MicroblogAdapter) SourceID() string { return config.SourceMicroblog }

func (a *MicroblogAdapter) Fetch(ctx context.Context, job models.JobSpec) ([]models.RawRecord, error) {
	return resilientFetch(ctx, a.base, job, a.scrape, func(j models.JobSpec) []map[string]any {
		return demoPayloadsFor(config.SourceMicroblog, j)
	})
}

func (a *MicroblogAdapter) scrape(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
	searchURL := a.cfg.BaseURL + "/search?q=" + url.QueryEscape(strings.Join(job.RequiredSkills, " OR "))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "outreachly-sourcing-engine/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ThrottleErr{RetryAfter: parseRetryAfterHeader(resp)}
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("microblog: upstream status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var payloads []map[string]any
	doc.Find(".result-profile").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find("a.profile-link").Attr("href")
		followers := parseFollowerCount(s.Find(".follower-count").Text())
		payloads = append(payloads, map[string]any{
			"name":        strings.TrimSpace(s.Find(".display-name").Text()),
			"headline":    strings.TrimSpace(s.Find(".bio").Text()),
			"location":    strings.TrimSpace(s.Find(".location").Text()),
			"profile_url": href,
			"skills":      splitTags(s.Find(".topics").Text()),
			"followers":   followers,
		})
	})
	return payloads, nil
}

func parseFollowerCount(raw string) int {
	raw = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, ",", ""), " followers", ""))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
