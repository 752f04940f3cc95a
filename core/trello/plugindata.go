package trello

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// CustomFieldsPluginID identifies the Trello Custom Fields power-up whose plugin
// data holds the issue key field.
const CustomFieldsPluginID = "56d5e249a98895a9797bebb9"

// batchChunkSize is the number of plugin data sub-requests sent per batch call.
const batchChunkSize = 10

// successStatus is the key of a successful entry in a batch response.
const successStatus = "200"

// PluginData is a single plugin data record attached to a card.
type PluginData struct {
	ID       string `json:"id,omitempty"`
	IDPlugin string `json:"idPlugin"`
	IDModel  string `json:"idModel"`
	Scope    string `json:"scope,omitempty"`
	Access   string `json:"access,omitempty"`
	// Value is a JSON document encoded as a string.
	Value string `json:"value"`
}

type customFieldsValue struct {
	Fields map[string]any `json:"fields"`
}

// chunkIDs splits ids into consecutive chunks of at most size elements,
// preserving order. The last chunk may be shorter.
func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 {
		size = batchChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func pluginDataURL(cardID string) string {
	return fmt.Sprintf("/cards/%s/pluginData", cardID)
}

// FetchPluginData fetches plugin data for every card in cardIDs using batch
// requests issued sequentially. The i-th returned entry belongs to cardIDs[i];
// the batch API does not echo identifiers, so position is the only link.
func (c *Client) FetchPluginData(ctx context.Context, cardIDs []string) ([]json.RawMessage, error) {
	all := make([]json.RawMessage, 0, len(cardIDs))
	for i, chunk := range chunkIDs(cardIDs, batchChunkSize) {
		urls := make([]string, len(chunk))
		for j, id := range chunk {
			urls[j] = pluginDataURL(id)
		}

		var raw json.RawMessage
		params := url.Values{"urls": {strings.Join(urls, ",")}}
		if err := c.GetJSON(ctx, "/batch", params, &raw); err != nil {
			return nil, fmt.Errorf("failed to fetch plugin data batch %d: %w", i, err)
		}

		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, &MalformedResponseError{Key: "batch", Item: raw}
		}
		if len(entries) != len(chunk) {
			return nil, &BatchSizeMismatchError{CardIDs: chunk, Received: len(entries), Response: raw}
		}
		all = append(all, entries...)
		slog.Debug("Plugin data batch fetched", "batch", i, "entriesSoFar", len(all))
	}
	return all, nil
}

// customFieldsData picks the Custom Fields record for cardID out of one batch
// entry. It returns nil when the card has no such record.
func customFieldsData(cardID string, entry json.RawMessage) (*PluginData, error) {
	var statuses map[string]json.RawMessage
	if err := json.Unmarshal(entry, &statuses); err != nil {
		return nil, &BatchEntryStatusError{CardID: cardID, Entry: entry}
	}
	payload, ok := statuses[successStatus]
	if !ok {
		return nil, &BatchEntryStatusError{CardID: cardID, Entry: entry}
	}

	var records []PluginData
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, &MalformedResponseError{Key: successStatus, Item: entry}
	}

	var matches []PluginData
	for _, r := range records {
		if r.IDPlugin == CustomFieldsPluginID {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, &MultiplePluginDataError{CardID: cardID, Records: matches}
	}

	data := matches[0]
	if data.IDModel != cardID {
		return nil, &PluginDataModelMismatchError{CardID: cardID, ModelID: data.IDModel}
	}
	return &data, nil
}

// fieldValue decodes the Custom Fields value document and returns the string
// stored under code. ok is false when the field is absent or null.
func fieldValue(data *PluginData, code string) (value string, ok bool, err error) {
	var doc customFieldsValue
	if err := json.Unmarshal([]byte(data.Value), &doc); err != nil {
		return "", false, &MalformedResponseError{Key: "value", Item: data}
	}
	if doc.Fields == nil {
		return "", false, &MalformedResponseError{Key: "fields", Item: data}
	}
	raw, ok := doc.Fields[code]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", false, &MalformedResponseError{Key: code, Item: data}
	}
	return s, true, nil
}
