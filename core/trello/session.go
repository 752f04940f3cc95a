package trello

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// Config carries everything a Session needs to talk to a board.
type Config struct {
	Key     string
	Token   string
	BoardID string
	// IssueKeyField is the Custom Fields code holding the external issue key.
	IssueKeyField string
}

// Session reads one board. The list index is loaded once by NewSession and
// every card loaded later must reference a list from it.
type Session struct {
	client  *Client
	boardID string
	field   string

	lists map[string]*List
	cards []*Card

	// normalizeIssueKey is applied to every extracted issue key.
	normalizeIssueKey func(string) string
}

// NewSession creates a client for cfg and loads the board's lists.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.IssueKeyField) == "" {
		return nil, fmt.Errorf("issue key field cannot be empty")
	}
	s := &Session{
		client:            NewClient(cfg.Key, cfg.Token),
		boardID:           strings.TrimSpace(cfg.BoardID),
		field:             cfg.IssueKeyField,
		normalizeIssueKey: passThroughIssueKey,
	}
	lists, err := s.client.LoadLists(ctx, s.boardID)
	if err != nil {
		return nil, err
	}
	s.lists = lists
	return s, nil
}

// passThroughIssueKey is the issue key normalization hook. Issue keys are
// currently used exactly as stored on the card.
func passThroughIssueKey(raw string) string {
	return raw
}

// List returns the indexed list with the given ID.
func (s *Session) List(id string) (*List, bool) {
	l, ok := s.lists[id]
	return l, ok
}

// Lists returns the indexed lists sorted by name, then ID.
func (s *Session) Lists() []*List {
	out := make([]*List, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Cards returns the result of the last successful LoadCards call.
func (s *Session) Cards() []*Card {
	return s.cards
}

// cardIndex keeps cards by ID in first-insertion order. Re-inserting an ID
// replaces the card but keeps its position.
type cardIndex struct {
	order []string
	byID  map[string]*Card
}

func newCardIndex(capacity int) *cardIndex {
	return &cardIndex{
		order: make([]string, 0, capacity),
		byID:  make(map[string]*Card, capacity),
	}
}

func (idx *cardIndex) put(c *Card) {
	if _, exists := idx.byID[c.ID]; !exists {
		idx.order = append(idx.order, c.ID)
	}
	idx.byID[c.ID] = c
}

func (idx *cardIndex) values() []*Card {
	out := make([]*Card, len(idx.order))
	for i, id := range idx.order {
		out[i] = idx.byID[id]
	}
	return out
}

// LoadCards fetches the open cards of the board, resolves their lists and
// attaches issue keys from the Custom Fields plugin data. Any inconsistency in
// the responses fails the whole load; no partial result is returned.
func (s *Session) LoadCards(ctx context.Context) ([]*Card, error) {
	idx, err := s.loadCardSkeletons(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.attachIssueKeys(ctx, idx); err != nil {
		return nil, err
	}
	s.cards = idx.values()
	slog.Debug("Trello cards loaded", "count", len(s.cards))
	return s.cards, nil
}

func (s *Session) loadCardSkeletons(ctx context.Context) (*cardIndex, error) {
	slog.Debug("Fetching Trello cards", "board", s.boardID)

	var items []map[string]any
	params := url.Values{"fields": {"name,idList"}}
	if err := s.client.GetJSON(ctx, fmt.Sprintf("/boards/%s/cards/open", url.PathEscape(s.boardID)), params, &items); err != nil {
		return nil, fmt.Errorf("failed to load cards of board %s: %w", s.boardID, err)
	}

	idx := newCardIndex(len(items))
	for _, item := range items {
		id, err := requireString(item, "id")
		if err != nil {
			return nil, err
		}
		name, err := requireString(item, "name")
		if err != nil {
			return nil, err
		}
		listID, err := requireString(item, "idList")
		if err != nil {
			return nil, err
		}
		list, ok := s.lists[listID]
		if !ok {
			return nil, &UnknownListReferenceError{CardID: id, ListID: listID}
		}
		idx.put(&Card{ID: id, Name: name, List: list})
	}
	return idx, nil
}

func (s *Session) attachIssueKeys(ctx context.Context, idx *cardIndex) error {
	entries, err := s.client.FetchPluginData(ctx, idx.order)
	if err != nil {
		return err
	}
	if len(entries) != len(idx.order) {
		return fmt.Errorf("plugin data returned %d entries for %d cards", len(entries), len(idx.order))
	}

	for i, cardID := range idx.order {
		data, err := customFieldsData(cardID, entries[i])
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		value, ok, err := fieldValue(data, s.field)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		key := s.normalizeIssueKey(value)
		idx.byID[cardID].IssueKey = &key
	}
	return nil
}
