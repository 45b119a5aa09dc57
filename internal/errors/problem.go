package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// ProblemDetails is an RFC 7807 problem document. Extensions are
// flattened into the top-level JSON object next to the standard
// members.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// NewProblemDetails builds a problem document with an empty extension
// set.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds one extension member and returns the document for
// chaining.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// Render sets the response status for chi render.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the document. Standard members
// overwrite an extension using the same key.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		doc[k] = v
	}

	doc["type"] = pd.Type
	doc["title"] = pd.Title
	doc["status"] = pd.Status
	if pd.Detail != "" {
		doc["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		doc["instance"] = pd.Instance
	}

	return json.Marshal(doc)
}
