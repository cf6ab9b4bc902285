package usecase

import (
	"strings"

	"github.com/medassist/chat-backend/internal/core/domain"
)

// DecideRoute maps the text and image classification labels to a generation
// strategy. Any domain label on either modality switches the request onto
// the retrieval path; when both carry domain labels and disagree the text
// label wins. Image refinement runs whenever the image itself looked
// domain-relevant, regardless of which label picked the collection.
func DecideRoute(textLabel, imageLabel string) domain.RoutingDecision {
	textDomain := domain.IsDomainLabel(textLabel)
	imageDomain := domain.IsDomainLabel(imageLabel)

	switch {
	case textDomain && imageDomain:
		return domain.RoutingDecision{
			Mode:        domain.RouteRetrieval,
			Domain:      normalizeLabel(textLabel),
			RefineImage: true,
		}
	case textDomain:
		return domain.RoutingDecision{
			Mode:   domain.RouteRetrieval,
			Domain: normalizeLabel(textLabel),
		}
	case imageDomain:
		return domain.RoutingDecision{
			Mode:        domain.RouteRetrieval,
			Domain:      normalizeLabel(imageLabel),
			RefineImage: true,
		}
	default:
		return domain.RoutingDecision{Mode: domain.RouteDirect}
	}
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
