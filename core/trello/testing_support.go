package trello

// ExportAPIBaseURL returns the current Trello API base URL (for cross-package tests).
func ExportAPIBaseURL() string { return apiBaseURL }

// SetAPIBaseURL overrides the Trello API base URL (for cross-package tests).
func SetAPIBaseURL(url string) { apiBaseURL = url }
