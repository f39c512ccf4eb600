// Package problem writes RFC 7807 Problem Details responses.
package problem

import (
	"encoding/json"
	"net/http"
)

// Problem types.
const (
	TypeBadRequest           = "https://tweakgen.dev/problems/bad-request"
	TypeUnauthorized         = "https://tweakgen.dev/problems/unauthorized"
	TypeNotFound             = "https://tweakgen.dev/problems/not-found"
	TypeRateLimited          = "https://tweakgen.dev/problems/rate-limited"
	TypeSubscriptionRequired = "https://tweakgen.dev/problems/subscription-required"
	TypeUpstream             = "https://tweakgen.dev/problems/upstream"
	TypeInternal             = "https://tweakgen.dev/problems/internal-error"
)

// CodeSubscriptionRequired is the machine-readable code of a quota rejection.
const CodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"

// Problem is an RFC 7807 body with the extension members this API uses.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Code              string   `json:"code,omitempty"`
	RequestsRemaining *int     `json:"requestsRemaining,omitempty"`
	Categories        []string `json:"categories,omitempty"`
}

// Write sends p with its status code.
func Write(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	Write(w, Problem{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest, Detail: detail, Instance: instance})
}

// Unauthorized writes a 401 problem response.
func Unauthorized(w http.ResponseWriter, detail, instance string) {
	Write(w, Problem{Type: TypeUnauthorized, Title: "Unauthorized", Status: http.StatusUnauthorized, Detail: detail, Instance: instance})
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	Write(w, Problem{Type: TypeNotFound, Title: "Not Found", Status: http.StatusNotFound, Detail: detail, Instance: instance})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	Write(w, Problem{Type: TypeRateLimited, Title: "Too Many Requests", Status: http.StatusTooManyRequests, Detail: detail, Instance: instance})
}

// SubscriptionRequired writes a 403 problem response for a spent free
// allowance.
func SubscriptionRequired(w http.ResponseWriter, detail, instance string, remaining int) {
	Write(w, Problem{
		Type:              TypeSubscriptionRequired,
		Title:             "Subscription Required",
		Status:            http.StatusForbidden,
		Detail:            detail,
		Instance:          instance,
		Code:              CodeSubscriptionRequired,
		RequestsRemaining: &remaining,
	})
}

// PromptFlagged writes a 400 problem response listing the moderation
// categories a prompt was flagged for.
func PromptFlagged(w http.ResponseWriter, detail, instance string, categories []string) {
	Write(w, Problem{
		Type:       TypeBadRequest,
		Title:      "Bad Request",
		Status:     http.StatusBadRequest,
		Detail:     detail,
		Instance:   instance,
		Categories: categories,
	})
}

// BadGateway writes a 502 problem response for upstream model failures.
func BadGateway(w http.ResponseWriter, detail, instance string) {
	Write(w, Problem{Type: TypeUpstream, Title: "Bad Gateway", Status: http.StatusBadGateway, Detail: detail, Instance: instance})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	Write(w, Problem{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError, Detail: detail, Instance: instance})
}
