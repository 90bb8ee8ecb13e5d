package checker

import (
	"context"
	"crypto/md5" //nolint:gosec // Gravatar addresses avatars by MD5
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/nao1215/footprint/internal/model"
	"golang.org/x/net/publicsuffix"
)

// Platform names produced by EmailChecker.
const (
	PlatformEmailDomain = "Email Domain"
	PlatformGravatar    = "Gravatar"
	PlatformBreachData  = "Public Breach Data"
)

// highReputationDomains receive a reputation bonus on top of liveness.
var highReputationDomains = []string{
	"gmail.com",
	"outlook.com",
	"icloud.com",
	"protonmail.com",
	"yahoo.com",
}

// EmailChecker inspects the domain of an email address, looks the address
// up in the Gravatar registry and runs a simulated breach lookup.
type EmailChecker struct {
	settings
}

// NewEmailChecker creates an EmailChecker.
func NewEmailChecker(opts ...Option) *EmailChecker {
	return &EmailChecker{settings: newSettings(opts)}
}

// Name returns "email".
func (c *EmailChecker) Name() string {
	return "email"
}

// Applicable reports whether an email address is present.
func (c *EmailChecker) Applicable(in model.AnalysisInput) bool {
	return in.Normalize().Email != ""
}

// Check returns outcomes in the order domain, Gravatar, breach data.
// Sources with nothing to report contribute no outcome.
func (c *EmailChecker) Check(ctx context.Context, in model.AnalysisInput) []Outcome {
	email := in.Normalize().Email
	hash := emailHash(email)

	outcomes := make([]Outcome, 0, 3)
	if out, ok := c.checkDomain(email); ok {
		outcomes = append(outcomes, out)
	}
	outcomes = append(outcomes, c.checkGravatar(ctx, email, hash))
	if out, ok := c.checkBreach(email, hash); ok {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// emailHash returns the hex MD5 of the trimmed, lower-cased address.
func emailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec // Gravatar addresses avatars by MD5
	return hex.EncodeToString(sum[:])
}

// emailDomain returns the text after the first "@".
func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return domain
}

func (c *EmailChecker) checkDomain(email string) (Outcome, bool) {
	domain := emailDomain(email)
	if domain == "" {
		return Outcome{}, false
	}

	signals := []model.Signal{
		model.NewSignal(model.KindPlatform, domain, c.weights.DomainLiveness,
			"DNS Records valid for @"+domain, "DNS Lookup (Simulated)"),
	}
	lower := strings.ToLower(domain)
	if slices.Contains(highReputationDomains, lower) {
		signals = append(signals, model.NewSignal(model.KindPlatform, domain, c.weights.DomainReputation,
			fmt.Sprintf("High-reputation email provider detected (%s)", domain), "Domain Reputation Database"))
	}

	out := found(PlatformEmailDomain, model.StatusFound, signals)
	out.RawCapture = domainCapture(lower)
	return out, true
}

// domainCapture describes the domain with public suffix data.
func domainCapture(domain string) map[string]any {
	capture := map[string]any{"domain": domain}
	suffix, icann := publicsuffix.PublicSuffix(domain)
	capture["public_suffix"] = suffix
	capture["icann"] = icann
	if registrable, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		capture["registrable_domain"] = registrable
	}
	return capture
}

func (c *EmailChecker) checkGravatar(ctx context.Context, email, hash string) Outcome {
	target := fmt.Sprintf("%s/avatar/%s?d=404", c.gravatarURL, hash)
	probe := Probe{Method: http.MethodHead, Target: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		probe.Err = err
		out := failed(PlatformGravatar, fmt.Errorf("%w: %w", ErrRequestFailed, err), false)
		out.Probes = []Probe{probe}
		return out
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := c.clock()
	resp, err := c.client.Do(req)
	probe.Duration = c.clock().Sub(start)
	if err != nil {
		probe.Err = err
		c.logger.Debug("gravatar lookup failed", slog.String("email", email), slog.Any("error", err))
		out := failed(PlatformGravatar, fmt.Errorf("%w: %w", ErrRequestFailed, err), false)
		out.Probes = []Probe{probe}
		return out
	}
	resp.Body.Close()
	probe.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		out := notFound(PlatformGravatar, false)
		out.Probes = []Probe{probe}
		return out
	}

	signals := []model.Signal{
		model.NewSignal(model.KindEmail, email, c.weights.EmailExact,
			"Gravatar profile found for this email address", "Gravatar Public API"),
		model.NewSignal(model.KindPlatform, "WordPress/Gravatar", c.weights.PlatformConfirmation,
			"Associated WordPress/Gravatar account confirmed", "Gravatar"),
	}
	out := found(PlatformGravatar, model.StatusFound, signals)
	out.ProfileURL = "https://gravatar.com/" + hash
	out.SearchQuery = fmt.Sprintf("site:gravatar.com %q", email)
	out.Probes = []Probe{probe}
	return out
}

// checkBreach reports a simulated breach hit when the first byte of the
// address hash is even.
func (c *EmailChecker) checkBreach(email, hash string) (Outcome, bool) {
	first, err := hex.DecodeString(hash[:2])
	if err != nil || first[0]%2 != 0 {
		return Outcome{}, false
	}

	signals := []model.Signal{
		model.NewSignal(model.KindEmail, email, c.weights.BreachPresence,
			"Email address found in historical public breach datasets (Simulated)", "HaveIBeenPwned (Simulated)"),
	}
	return found(PlatformBreachData, model.StatusPotential, signals), true
}
