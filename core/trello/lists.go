package trello

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// LoadLists fetches all lists of a board and indexes them by ID.
func (c *Client) LoadLists(ctx context.Context, boardID string) (map[string]*List, error) {
	boardID = strings.TrimSpace(boardID)
	if boardID == "" {
		return nil, fmt.Errorf("board id cannot be empty")
	}
	slog.Debug("Fetching Trello lists", "board", boardID)

	var items []map[string]any
	params := url.Values{"fields": {"name"}}
	if err := c.GetJSON(ctx, fmt.Sprintf("/boards/%s/lists", url.PathEscape(boardID)), params, &items); err != nil {
		return nil, fmt.Errorf("failed to load lists of board %s: %w", boardID, err)
	}

	lists := make(map[string]*List, len(items))
	for _, item := range items {
		id, err := requireString(item, "id")
		if err != nil {
			return nil, err
		}
		name, err := requireString(item, "name")
		if err != nil {
			return nil, err
		}
		lists[id] = &List{ID: id, Name: name}
	}

	slog.Debug("Trello lists fetched", "count", len(lists))
	return lists, nil
}

// requireString returns item[key] when it is present and a string.
func requireString(item map[string]any, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", &MalformedResponseError{Key: key, Item: item}
	}
	s, ok := v.(string)
	if !ok {
		return "", &MalformedResponseError{Key: key, Item: item}
	}
	return s, nil
}
