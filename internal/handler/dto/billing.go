package dto

// CreateCheckoutRequest represents the request body for starting checkout.
type CreateCheckoutRequest struct {
	Plan string `json:"plan"`
}

// CheckoutResponse returns the hosted checkout handle. The client
// redirects the browser to URL; card data never touches this API.
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
