package domain

import "strings"

// LabelGeneric is the classifier sentinel meaning "no specialized domain".
const LabelGeneric = "generic"

type RouteMode string

const (
	RouteDirect    RouteMode = "direct"
	RouteRetrieval RouteMode = "retrieval"
)

// RoutingDecision maps classification results to a generation strategy.
// Domain names the knowledge collection to retrieve from when Mode is
// RouteRetrieval. RefineImage requests the fine-grained disease description
// for the attached image before generation.
type RoutingDecision struct {
	Mode        RouteMode `json:"mode"`
	Domain      string    `json:"domain,omitempty"`
	RefineImage bool      `json:"refine_image"`
}

// IsDomainLabel reports whether a classification label names a specialized
// domain. Absent labels are passed as the empty string and count as generic.
func IsDomainLabel(label string) bool {
	label = strings.TrimSpace(strings.ToLower(label))
	return label != "" && label != LabelGeneric
}
