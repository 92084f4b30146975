package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/outreachly/sourcing-engine/internal/cache"
	"github.com/outreachly/sourcing-engine/internal/config"
	"github.com/outreachly/sourcing-engine/internal/models"
	"github.com/outreachly/sourcing-engine/internal/ratelimit"
)

// CodeHostAdapter sources candidates from public code-hosting accounts
// (spec.md §4.3's "code-hosting source"), via the GitHub REST API.
type CodeHostAdapter struct {
	base
	client *github.Client
}

// NewCodeHostAdapter builds a CodeHostAdapter. When cfg.Credential is
// set, requests are authenticated via a static OAuth2 token source;
// otherwise the adapter falls back to GitHub's unauthenticated rate
// limits (much lower, so the rate limiter's source bucket should be
// configured conservatively for anonymous use).
func NewCodeHostAdapter(c *cache.Cache, l *ratelimit.Limiter, cfg config.SourceConfig, log *slog.Logger) *CodeHostAdapter {
	var httpClient *http.Client
	if cfg.Credential != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Credential})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		if withBase, err := client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL); err == nil {
			client = withBase
		}
	}
	return &CodeHostAdapter{
		base:   newBase(config.SourceCodeHost, c, l, cfg, log),
		client: client,
	}
}

func (a *CodeHostAdapter) SourceID() string { return config.SourceCodeHost }

func (a *CodeHostAdapter) Fetch(ctx context.Context, job models.JobSpec) ([]models.RawRecord, error) {
	return resilientFetch(ctx, a.base, job, a.fetchFromGitHub, func(j models.JobSpec) []map[string]any {
		return demoPayloadsFor(config.SourceCodeHost, j)
	})
}

func (a *CodeHostAdapter) fetchFromGitHub(ctx context.Context, job models.JobSpec) ([]map[string]any, error) {
	query := buildUserSearchQuery(job)
	result, resp, err := a.client.Search.Users(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 10},
	})
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ThrottleErr{RetryAfter: retryAfterFromResponse(resp)}
	}
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(result.Users))
	for _, u := range result.Users {
		profile, _, err := a.client.Users.Get(ctx, u.GetLogin())
		if err != nil {
			continue
		}
		repos, _, err := a.client.Repositories.List(ctx, u.GetLogin(), &github.RepositoryListOptions{
			ListOptions: github.ListOptions{PerPage: 20},
		})
		if err != nil {
			repos = nil
		}
		out = append(out, map[string]any{
			"name":        profile.GetName(),
			"headline":    buildCodeHostHeadline(profile),
			"location":    profile.GetLocation(),
			"profile_url": profile.GetHTMLURL(),
			"skills":      languagesFromRepos(repos),
			"followers":   profile.GetFollowers(),
			"public_repos": profile.GetPublicRepos(),
		})
	}
	return out, nil
}

func buildUserSearchQuery(job models.JobSpec) string {
	var parts []string
	for _, s := range job.RequiredSkills {
		parts = append(parts, fmt.Sprintf("language:%s", s))
	}
	if len(parts) == 0 {
		parts = append(parts, "followers:>100")
	}
	return strings.Join(parts, " ")
}

func buildCodeHostHeadline(u *github.User) string {
	if u.GetBio() != "" {
		return u.GetBio()
	}
	if u.GetCompany() != "" {
		return fmt.Sprintf("Engineer at %s", strings.TrimPrefix(u.GetCompany(), "@"))
	}
	return ""
}

func languagesFromRepos(repos []*github.Repository) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range repos {
		lang := strings.ToLower(r.GetLanguage())
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}

func retryAfterFromResponse(resp *github.Response) time.Duration {
	return parseRetryAfterHeader(resp.Response)
}
