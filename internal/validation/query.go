package validation

import (
	"net/url"
	"strconv"
	"strings"

	"resume-relay/internal/models"
)

// retrieveQuery mirrors the upstream's debug retrieve parameters.
type retrieveQuery struct {
	Q          string `json:"q" validate:"required"`
	K          *int   `json:"k" validate:"omitempty,min=1"`
	PreviewLen *int   `json:"preview_len" validate:"omitempty,min=0,max=4000"`
	FullIndex  *int   `json:"full_index" validate:"omitempty,min=0"`
}

// ValidateRetrieveQuery checks debug retrieve parameters and returns only the
// recognised ones, normalised, for forwarding.
func ValidateRetrieveQuery(values url.Values) (url.Values, error) {
	var issues []models.Issue
	q := retrieveQuery{Q: strings.TrimSpace(values.Get("q"))}

	ints := []struct {
		name string
		dst  **int
	}{
		{"k", &q.K},
		{"preview_len", &q.PreviewLen},
		{"full_index", &q.FullIndex},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(values.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			issues = append(issues, models.Issue{Field: p.name, Message: "Expected integer, received " + raw})
			continue
		}
		*p.dst = &n
	}

	if err := validate.Struct(&q); err != nil {
		issues = appendIssues(issues, err)
	}
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}

	out := url.Values{"q": {q.Q}}
	for _, p := range ints {
		if *p.dst != nil {
			out.Set(p.name, strconv.Itoa(**p.dst))
		}
	}
	return out, nil
}
