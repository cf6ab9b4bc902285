package usecase

import (
	"testing"

	"github.com/medassist/chat-backend/internal/core/domain"
)

func TestDecideRoute(t *testing.T) {
	cases := []struct {
		name       string
		textLabel  string
		imageLabel string
		want       domain.RoutingDecision
	}{
		{
			name:       "both generic",
			textLabel:  "generic",
			imageLabel: "generic",
			want:       domain.RoutingDecision{Mode: domain.RouteDirect},
		},
		{
			name:       "text domain image generic",
			textLabel:  "dermatology",
			imageLabel: "generic",
			want:       domain.RoutingDecision{Mode: domain.RouteRetrieval, Domain: "dermatology"},
		},
		{
			name:       "text generic image domain",
			textLabel:  "generic",
			imageLabel: "dermatology",
			want:       domain.RoutingDecision{Mode: domain.RouteRetrieval, Domain: "dermatology", RefineImage: true},
		},
		{
			name:       "both domain same label",
			textLabel:  "dermatology",
			imageLabel: "dermatology",
			want:       domain.RoutingDecision{Mode: domain.RouteRetrieval, Domain: "dermatology", RefineImage: true},
		},
		{
			name:       "both domain text wins disagreement",
			textLabel:  "cardiology",
			imageLabel: "dermatology",
			want:       domain.RoutingDecision{Mode: domain.RouteRetrieval, Domain: "cardiology", RefineImage: true},
		},
		{
			name:       "absent labels count as generic",
			textLabel:  "",
			imageLabel: "",
			want:       domain.RoutingDecision{Mode: domain.RouteDirect},
		},
		{
			name:       "label normalized to lowercase",
			textLabel:  "  Dermatology ",
			imageLabel: "generic",
			want:       domain.RoutingDecision{Mode: domain.RouteRetrieval, Domain: "dermatology"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecideRoute(tc.textLabel, tc.imageLabel)
			if got != tc.want {
				t.Fatalf("DecideRoute(%q, %q) = %+v, want %+v", tc.textLabel, tc.imageLabel, got, tc.want)
			}
		})
	}
}
