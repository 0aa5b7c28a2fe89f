package storage

// Installation represents a GitHub App installation.
type Installation struct {
	InstallationID int64  `json:"installation_id"`
	OrgLogin       string `json:"org_login"`
	InstalledAt    string `json:"installed_at"`
}

// FileRecord is the stored outcome of one reviewed file.
type FileRecord struct {
	Filename  string `json:"filename"`
	Language  string `json:"language,omitempty"`
	Stage     string `json:"stage"`
	CommentID int64  `json:"comment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunRecord is the stored outcome of one review run.
type RunRecord struct {
	DeliveryID     string       `json:"delivery_id"`
	InstallationID int64        `json:"installation_id"`
	Owner          string       `json:"owner"`
	Repo           string       `json:"repo"`
	PRNumber       int          `json:"pr_number"`
	HeadSHA        string       `json:"head_sha"`
	State          string       `json:"state"`
	Files          []FileRecord `json:"files"`
	ReviewID       int64        `json:"review_id,omitempty"`
	Error          string       `json:"error,omitempty"`
	CreatedAt      string       `json:"created_at"`
}
