package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

// PrimaryAdapter sources candidates from the configured primary
// professional-profile directory (spec.md §4.3) via structured page
// traversal. The directory is assumed to expose a search results page
// with one DOM card per candidate; the selectors are fixed in this file
// and are not configurable.
type PrimaryAdapter struct {
	base
}

func NewPrimaryAdapter(c *cache.Cache, l *ratelimit.Limiter, cfg config.SourceConfig, log *slog.Logger) *PrimaryAdapter {
	return &PrimaryAdapter{base: newBase(config.SourcePrimary, c, l, cfg, log)}
}

func (a *PrimaryAdapter) SourceID() string { return config.SourcePrimary }

func (a *PrimaryAdapter) Fetch(ctx context.Context, job models.JobSpec) ([]models.RawRecord, error) {
	return resilientFetch(ctx, a.base, job, a.crawl, func(j models.JobSpec) []map[string]any {
		return demoPayloadsFor(config.SourcePrimary, j)
	})
}

func (a *PrimaryAdapter) crawl(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
	searchURL := a.cfg.BaseURL + "/search?q=" + url.QueryEscape(strings.Join(job.RequiredSkills, " "))

	var payloads []map[string]any
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
				if secs, err := time.ParseDuration(ra + "s"); err == nil {
					retryAfter = secs
				}
			}
		}
	})

	c.OnHTML(".profile-card", func(e *colly.HTMLElement) {
		payloads = append(payloads, map[string]any{
			"name":        strings.TrimSpace(e.ChildText(".profile-name")),
			"headline":    strings.TrimSpace(e.ChildText(".profile-headline")),
			"location":    strings.TrimSpace(e.ChildText(".profile-location")),
			"profile_url": e.Request.AbsoluteURL(e.ChildAttr("a.profile-link", "href")),
			"skills":      splitTags(e.ChildText(".profile-skills")),
		})
	})

	if err := c.Visit(searchURL); err != nil {
		return nil, err
	}
	c.Wait()

	if throttled {
		return nil, &ThrottleErr{RetryAfter: retryAfter}
	}
	return payloads, nil
}

func splitTags(s string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '|' || r == '\n'
	}) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
