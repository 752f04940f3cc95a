package trello

import "fmt"

// List is a column of a board.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (l *List) String() string {
	return l.Name
}

// Card is an open card of a board. List points into the session's list index.
// IssueKey is nil when the card has no issue key custom field set.
type Card struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	List     *List   `json:"-"`
	IssueKey *string `json:"issueKey,omitempty"`
}

// GetIssueKey returns the issue key or an empty string.
func (c *Card) GetIssueKey() string {
	if c == nil || c.IssueKey == nil {
		return ""
	}
	return *c.IssueKey
}

// ListName returns the name of the card's list or an empty string.
func (c *Card) ListName() string {
	if c == nil || c.List == nil {
		return ""
	}
	return c.List.Name
}

func (c *Card) String() string {
	s := c.Name
	if c.IssueKey != nil && *c.IssueKey != "" {
		s += fmt.Sprintf(" (%s)", *c.IssueKey)
	}
	if c.List != nil {
		s += fmt.Sprintf(" [%s]", c.List.Name)
	}
	return s
}
