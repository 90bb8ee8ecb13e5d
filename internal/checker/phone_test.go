package checker

import (
	"context"
	"testing"

	"github.com/nao1215/footprint/internal/model"
)

func TestPhoneChecker(t *testing.T) {
	t.Parallel()

	c := NewPhoneChecker()
	if c.Applicable(model.AnalysisInput{CountryCode: "+91"}) {
		t.Error("expected not applicable without a phone number")
	}

	outcomes := c.Check(context.Background(), model.AnalysisInput{PhoneNumber: "9876543210", CountryCode: "+91"})

	testCases := []struct {
		platform string
		status   model.Status
		weight   float64
		url      string
	}{
		{PlatformWhatsApp, model.StatusPotential, 90, "https://wa.me/919876543210"},
		{PlatformTelegram, model.StatusPotential, 85, "https://t.me/+919876543210"},
		{PlatformTruecaller, model.StatusFound, 95, "https://www.truecaller.com/search/search?q=919876543210"},
		{PlatformPublicWeb, model.StatusPotential, 60, "https://www.google.com/search?q=%229876543210%22+OR+%22%2B91+9876543210%22"},
	}

	if len(outcomes) != len(testCases) {
		t.Fatalf("got %d outcomes, expected %d", len(outcomes), len(testCases))
	}

	for i, tc := range testCases {
		t.Run(tc.platform, func(t *testing.T) {
			t.Parallel()
			o := outcomes[i]
			if o.Platform != tc.platform || o.Status != tc.status || o.Kind != OutcomeFound {
				t.Errorf("got %s/%s/%s", o.Platform, o.Status, o.Kind)
			}
			if len(o.Signals) != 1 || o.Signals[0].Kind != model.KindPhone || o.Signals[0].Weight != tc.weight {
				t.Errorf("unexpected signals: %+v", o.Signals)
			}
			if o.ProfileURL != tc.url {
				t.Errorf("got URL %q, expected %q", o.ProfileURL, tc.url)
			}
		})
	}

	t.Run("web search dork", func(t *testing.T) {
		t.Parallel()
		expected := `intext:"9876543210" OR intext:"+91 9876543210"`
		if got := outcomes[3].SearchQuery; got != expected {
			t.Errorf("got %q, expected %q", got, expected)
		}
		if outcomes[3].Signals[0].Value != "9876543210" {
			t.Errorf("got value %q", outcomes[3].Signals[0].Value)
		}
	})
}

func TestPhoneCheckerWithoutCountryCode(t *testing.T) {
	t.Parallel()

	outcomes := NewPhoneChecker().Check(context.Background(), model.AnalysisInput{PhoneNumber: "5551234"})
	if outcomes[0].ProfileURL != "https://wa.me/5551234" {
		t.Errorf("got %q", outcomes[0].ProfileURL)
	}
	if outcomes[0].Signals[0].Value != "5551234" {
		t.Errorf("got value %q", outcomes[0].Signals[0].Value)
	}
}
