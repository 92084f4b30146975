package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

// PersonalSiteAdapter does best-effort discovery of a candidate-owned
// site (spec.md §4.3): crawl a directory of known candidate sites
// (BaseURL), then extract clean article/bio text via go-readability so
// downstream scoring and outreach get signal beyond a raw HTML blob.
type PersonalSiteAdapter struct {
	base
}

func NewPersonalSiteAdapter(c *cache.Cache, l *ratelimit.Limiter, cfg config.SourceConfig, log *slog.Logger) *PersonalSiteAdapter {
	return &PersonalSiteAdapter{base: newBase(config.SourcePersonalSite, c, l, cfg, log)}
}

func (a *PersonalSiteAdapter) SourceID() string { return config.SourcePersonalSite }

func (a *PersonalSiteAdapter) Fetch(ctx context.Context, job models.JobSpec) ([]models.RawRecord, error) {
	return resilientFetch(ctx, a.base, job, a.discover, func(j models.JobSpec) []map[string]any {
		return demoPayloadsFor(config.SourcePersonalSite, j)
	})
}

func (a *PersonalSiteAdapter) discover(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
	var siteLinks []string
	var throttled bool
	var retryAfter time.Duration

	c := colly.NewCollector(
		colly.UserAgent("outreachly-sourcing-engine/1.0"),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(30 * time.Second)

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode == 429 {
			throttled = true
			if ra := r.Headers.Get("Retry-After"); ra != "" {
				if d, err := time.ParseDuration(ra + "s"); err == nil {
					retryAfter = d
				}
			}
		}
	})

	c.OnHTML("a.personal-site[href]", func(e *colly.HTMLElement) {
		siteLinks = append(siteLinks, e.Request.AbsoluteURL(e.Attr("href")))
	})

	directoryURL := a.cfg.BaseURL + "/directory?q=" + url.QueryEscape(strings.Join(job.RequiredSkills, " "))
	if err := c.Visit(directoryURL); err != nil {
		return nil, err
	}
	c.Wait()

	if throttled {
		return nil, &ThrottleErr{RetryAfter: retryAfter}
	}

	var payloads []map[string]any
	for _, link := range siteLinks {
		payload, err := a.extractSite(ctx, link)
		if err != nil {
			a.log.Warn("personal site extraction failed", "url", link, "error", err)
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func (a *PersonalSiteAdapter) extractSite(ctx context.Context, siteURL string) (map[string]any, error) {
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "outreachly-sourcing-engine/1.0")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"name":        article.Title,
		"headline":    truncate(article.Excerpt, 200),
		"profile_url": siteURL,
		"site_text":   truncate(article.TextContent, 2000),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
