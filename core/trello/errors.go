package trello

import (
	"encoding/json"
	"fmt"
)

// RemoteRequestError is returned when the Trello API answers with a non-200 status.
type RemoteRequestError struct {
	StatusCode int
	Path       string
	// Body is the raw response body.
	Body string
	// Message is an optional human-readable explanation.
	Message string
}

func (e *RemoteRequestError) Error() string {
	msg := fmt.Sprintf("trello API returned status %d for %s", e.StatusCode, e.Path)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// MalformedResponseError is returned when a response item lacks a required key
// or carries a value of an unexpected shape.
type MalformedResponseError struct {
	Key  string
	Item any
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed trello response: missing or invalid %q in %s", e.Key, rawString(e.Item))
}

// UnknownListReferenceError is returned when a card points at a list that was
// not present when the list index was built.
type UnknownListReferenceError struct {
	CardID string
	ListID string
}

func (e *UnknownListReferenceError) Error() string {
	return fmt.Sprintf("card %s references list %s which is not loaded", e.CardID, e.ListID)
}

// BatchSizeMismatchError is returned when a batch response does not contain
// exactly one entry per requested card.
type BatchSizeMismatchError struct {
	CardIDs  []string
	Received int
	Response json.RawMessage
}

func (e *BatchSizeMismatchError) Error() string {
	return fmt.Sprintf("batch returned %d entries for %d requested cards: %s", e.Received, len(e.CardIDs), string(e.Response))
}

// BatchEntryStatusError is returned when a plugin data sub-request of a batch
// did not succeed.
type BatchEntryStatusError struct {
	CardID string
	Entry  json.RawMessage
}

func (e *BatchEntryStatusError) Error() string {
	return fmt.Sprintf("bad status for plugin data request of card %s: %s", e.CardID, string(e.Entry))
}

// MultiplePluginDataError is returned when a card has more than one Custom
// Fields plugin data record.
type MultiplePluginDataError struct {
	CardID  string
	Records []PluginData
}

func (e *MultiplePluginDataError) Error() string {
	return fmt.Sprintf("card %s has %d custom fields plugin data records, expected at most one", e.CardID, len(e.Records))
}

// PluginDataModelMismatchError is returned when the plugin data record at a
// card's position belongs to a different card.
type PluginDataModelMismatchError struct {
	CardID  string
	ModelID string
}

func (e *PluginDataModelMismatchError) Error() string {
	return fmt.Sprintf("plugin data model %q does not match card %s", e.ModelID, e.CardID)
}

func rawString(v any) string {
	switch t := v.(type) {
	case json.RawMessage:
		return string(t)
	case string:
		return t
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
