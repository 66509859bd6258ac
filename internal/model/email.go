package model

// EmailMessage is a summary of one mailbox message, composed from the mail
// provider's headers and snippet. It is a transient view, never stored.
type EmailMessage struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Snippet  string `json:"snippet"`
	ListName string `json:"list_name,omitempty"`
}

// AuthContext carries the authenticated caller's identity through a
// request. It is built by the session middleware from the session store.
type AuthContext struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
