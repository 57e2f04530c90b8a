package models

// Issue names one violated field of a payload.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-success envelope. Issues is set for
// validation failures, Detail for unexpected ones.
type ErrorResponse struct {
	Error  string  `json:"error"`
	Issues []Issue `json:"issues,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// PublicConfig is what the browser may learn about the deployment.
type PublicConfig struct {
	PublicAPIURL string `json:"public_api_url"`
}
