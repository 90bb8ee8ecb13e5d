package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nao1215/footprint/internal/model"
)

// Platform names produced by UsernameChecker.
const (
	PlatformGitHub    = "GitHub"
	PlatformTwitter   = "Twitter"
	PlatformInstagram = "Instagram"
	PlatformFacebook  = "Facebook"
	PlatformTinder    = "Tinder"
	PlatformTelegram  = "Telegram"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1 << 20

// githubUser is the subset of the GitHub users API response we use.
type githubUser struct {
	Login       string `json:"login"`
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SiteAdmin   bool   `json:"site_admin"`
	PublicRepos int    `json:"public_repos"`
	CreatedAt   string `json:"created_at"`
}

// simulatedPlatform describes one entry of the simulated roster.
type simulatedPlatform struct {
	name   string
	status model.Status

	// gated platforms additionally require a coin flip before the
	// existence decision is made.
	gated bool

	profileURL func(username string) string
	dork       func(username string) string
	metadata   func(username string, r RandomSource, now time.Time) map[string]any
}

// simulatedRoster is checked in this order after GitHub.
var simulatedRoster = []simulatedPlatform{
	{
		name:       PlatformTwitter,
		status:     model.StatusPotential,
		profileURL: func(u string) string { return "https://twitter.com/" + u },
		dork:       func(u string) string { return fmt.Sprintf("site:twitter.com %q", u) },
		metadata: func(u string, r RandomSource, _ time.Time) map[string]any {
			return map[string]any{
				"user_id":     r.IntN(1_000_000_000),
				"screen_name": u,
				"protected":   false,
				"verified":    false,
			}
		},
	},
	{
		name:       PlatformInstagram,
		status:     model.StatusPotential,
		profileURL: func(u string) string { return "https://instagram.com/" + u },
		dork:       func(u string) string { return fmt.Sprintf("site:instagram.com %q", u) },
		metadata: func(u string, r RandomSource, _ time.Time) map[string]any {
			return map[string]any{
				"pk":          r.IntN(999_999_999),
				"username":    u,
				"is_private":  true,
				"media_count": r.IntN(100),
			}
		},
	},
	{
		name:       PlatformFacebook,
		status:     model.StatusPotential,
		profileURL: func(u string) string { return "https://facebook.com/" + u },
		dork:       func(u string) string { return fmt.Sprintf("site:facebook.com %q", u) },
		metadata: func(_ string, r RandomSource, now time.Time) map[string]any {
			return map[string]any{
				"uid":          r.IntN(1_000_000_000),
				"profile_type": "public_index",
				"last_crawled": now.UTC().Format(time.RFC3339),
			}
		},
	},
	{
		name:       PlatformTinder,
		status:     model.StatusPotential,
		gated:      true,
		profileURL: func(string) string { return "" },
		dork: func(u string) string {
			return fmt.Sprintf("site:tinder.com %q OR site:bumble.com %q", u, u)
		},
		metadata: func(_ string, r RandomSource, _ time.Time) map[string]any {
			return map[string]any{
				"user_hash":  strconv.FormatInt(int64(r.IntN(1<<30)), 36),
				"age_filter": "18-25",
				"active":     true,
			}
		},
	},
	{
		name:       PlatformTelegram,
		status:     model.StatusFound,
		profileURL: func(u string) string { return "https://t.me/" + u },
		dork:       func(u string) string { return fmt.Sprintf("site:t.me %q", u) },
		metadata: func(u string, r RandomSource, _ time.Time) map[string]any {
			return map[string]any{
				"id":       r.IntN(999_999_999),
				"is_bot":   false,
				"username": u,
				"photo":    nil,
			}
		},
	},
}

// UsernameChecker looks a username up on GitHub and on a simulated roster
// of social platforms.
type UsernameChecker struct {
	settings
}

// NewUsernameChecker creates a UsernameChecker.
func NewUsernameChecker(opts ...Option) *UsernameChecker {
	return &UsernameChecker{settings: newSettings(opts)}
}

// Name returns "username".
func (c *UsernameChecker) Name() string {
	return "username"
}

// Applicable reports whether a username is present.
func (c *UsernameChecker) Applicable(in model.AnalysisInput) bool {
	return in.Normalize().Username != ""
}

// Check returns the GitHub outcome followed by the simulated roster.
func (c *UsernameChecker) Check(ctx context.Context, in model.AnalysisInput) []Outcome {
	username := in.Normalize().Username
	outcomes := make([]Outcome, 0, len(simulatedRoster)+1)

	outcomes = append(outcomes, c.checkGitHub(ctx, username))
	for _, p := range simulatedRoster {
		outcomes = append(outcomes, c.checkSimulated(p, username))
	}
	return outcomes
}

func (c *UsernameChecker) checkGitHub(ctx context.Context, username string) Outcome {
	target := c.githubAPI + "/users/" + url.PathEscape(username)
	dork := fmt.Sprintf("site:github.com %q", username)

	user, probe, err := c.fetchGitHubUser(ctx, target)
	if err != nil {
		c.logger.Debug("github lookup failed", slog.String("username", username), slog.Any("error", err))
		out := failed(PlatformGitHub, err, true)
		out.SearchQuery = dork
		out.Probes = []Probe{probe}
		return out
	}
	if user == nil {
		out := notFound(PlatformGitHub, true)
		out.SearchQuery = dork
		out.Probes = []Probe{probe}
		return out
	}

	display := user.Name
	if display == "" {
		display = username
	}
	signals := []model.Signal{
		model.NewSignal(model.KindUsername, username, c.weights.UsernameExact,
			"Exact username match on GitHub: "+display, "GitHub API"),
	}
	if user.Name != "" {
		signals = append(signals, model.NewSignal(model.KindName, user.Name, c.weights.NameCorroboration,
			"Full name confirmed on profile", "GitHub Profile"))
	}

	out := found(PlatformGitHub, model.StatusFound, signals)
	out.ProfileURL = "https://github.com/" + username
	out.SearchQuery = dork
	out.RawCapture = map[string]any{
		"id":           user.ID,
		"type":         user.Type,
		"site_admin":   user.SiteAdmin,
		"public_repos": user.PublicRepos,
		"created_at":   user.CreatedAt,
	}
	out.Probes = []Probe{probe}
	return out
}

// fetchGitHubUser returns (nil, probe, nil) when the user does not exist.
func (c *UsernameChecker) fetchGitHubUser(ctx context.Context, target string) (*githubUser, Probe, error) {
	probe := Probe{Method: http.MethodGet, Target: target}
	start := c.clock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		probe.Err = err
		return nil, probe, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.githubToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.githubToken)
	}

	resp, err := c.client.Do(req)
	probe.Duration = c.clock().Sub(start)
	if err != nil {
		probe.Err = err
		return nil, probe, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	probe.StatusCode = resp.StatusCode

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, probe, nil
	default:
		return nil, probe, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var user githubUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&user); err != nil {
		return nil, probe, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return &user, probe, nil
}

func (c *UsernameChecker) checkSimulated(p simulatedPlatform, username string) Outcome {
	if p.gated && c.random.Float64() <= 0.5 {
		return notFound(p.name, false)
	}
	if !c.simulatedExists(p.name, username) {
		return notFound(p.name, false)
	}

	signals := []model.Signal{
		model.NewSignal(model.KindUsername, username, c.weights.SimulatedPlatform,
			fmt.Sprintf("Positive identity match on %s database", p.name),
			p.name+" verified index"),
	}
	out := found(p.name, p.status, signals)
	out.ProfileURL = p.profileURL(username)
	out.SearchQuery = p.dork(username)
	out.RawCapture = p.metadata(username, c.random, c.clock())
	return out
}

func (c *UsernameChecker) simulatedExists(platform, username string) bool {
	if c.simulation != SimulationDeterministic {
		return true
	}
	return codePointSum(username+platform)%c.simulationDivisor == 0
}

func codePointSum(s string) int {
	sum := 0
	for _, r := range s {
		sum += int(r)
	}
	return sum
}
