package domain

// Organization is the tenant-level resource this app is authorized to act on.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Profile is the minimal identity record returned by the platform's
// /user/me endpoint. Only the subject identifier is interpreted.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
