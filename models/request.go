package models

// FetchProductRequest is the payload for POST /api/fetch-product.
type FetchProductRequest struct {
	// URL is the product page to extract. Required, must be absolute.
	URL string `json:"url"`

	// Save asks the calling layer to persist the result. The core never
	// acts on it; it is echoed back for the collaborator boundary.
	Save bool `json:"save,omitempty"`

	// UserID identifies the caller for rate limiting. Falls back to the
	// client IP when empty.
	UserID string `json:"user_id,omitempty"`
}
