package checker

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nao1215/footprint/internal/model"
)

// Platform names produced by PhoneChecker.
const (
	PlatformWhatsApp   = "WhatsApp"
	PlatformTruecaller = "Truecaller"
	PlatformPublicWeb  = "Public Web"
)

// PhoneChecker builds messaging deep links and search vectors for a phone
// number. It makes no network calls.
type PhoneChecker struct {
	settings
}

// NewPhoneChecker creates a PhoneChecker.
func NewPhoneChecker(opts ...Option) *PhoneChecker {
	return &PhoneChecker{settings: newSettings(opts)}
}

// Name returns "phone".
func (c *PhoneChecker) Name() string {
	return "phone"
}

// Applicable reports whether a phone number is present.
func (c *PhoneChecker) Applicable(in model.AnalysisInput) bool {
	return in.Normalize().PhoneNumber != ""
}

// Check returns WhatsApp, Telegram, Truecaller and Public Web outcomes.
func (c *PhoneChecker) Check(_ context.Context, in model.AnalysisInput) []Outcome {
	n := in.Normalize()
	number := n.PhoneNumber
	full := strings.Replace(n.CountryCode, "+", "", 1) + number
	formatted := strings.TrimSpace(n.CountryCode + " " + number)

	whatsapp := found(PlatformWhatsApp, model.StatusPotential, []model.Signal{
		model.NewSignal(model.KindPhone, formatted, c.weights.PhoneWhatsApp,
			"Direct deep-link generated for WhatsApp Profile", "WhatsApp API"),
	})
	whatsapp.ProfileURL = "https://wa.me/" + full
	whatsapp.SearchQuery = fmt.Sprintf("site:whatsapp.com %q", number)
	whatsapp.RawCapture = map[string]any{
		"target":       formatted,
		"api_endpoint": "wa.me/" + full,
		"type":         "messaging",
	}

	telegram := found(PlatformTelegram, model.StatusPotential, []model.Signal{
		model.NewSignal(model.KindPhone, formatted, c.weights.PhoneTelegram,
			"Direct deep-link generated for Telegram User", "Telegram API"),
	})
	telegram.ProfileURL = "https://t.me/+" + full
	telegram.SearchQuery = fmt.Sprintf("site:t.me %q", number)
	telegram.RawCapture = map[string]any{
		"target": "+" + full,
		"type":   "messaging",
	}

	truecaller := found(PlatformTruecaller, model.StatusFound, []model.Signal{
		model.NewSignal(model.KindPhone, formatted, c.weights.PhoneDirectory,
			"Direct search vector for Truecaller Database", "Truecaller Search"),
	})
	truecaller.ProfileURL = "https://www.truecaller.com/search/search?q=" + url.QueryEscape(full)
	truecaller.SearchQuery = fmt.Sprintf("site:truecaller.com %q", number)
	truecaller.RawCapture = map[string]any{
		"query":    full,
		"database": "Global",
		"access":   "Public Web Search",
	}

	query := fmt.Sprintf("%q OR %q", number, formatted)
	web := found(PlatformPublicWeb, model.StatusPotential, []model.Signal{
		model.NewSignal(model.KindPhone, number, c.weights.PhoneWebSearch,
			"Public web footprint search", "Google Index"),
	})
	web.ProfileURL = "https://www.google.com/search?q=" + url.QueryEscape(query)
	web.SearchQuery = fmt.Sprintf("intext:%q OR intext:%q", number, formatted)
	web.RawCapture = map[string]any{
		"query_types": []string{"exact_match", "formatted_match"},
	}

	return []Outcome{whatsapp, telegram, truecaller, web}
}
