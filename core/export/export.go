// Package export converts loaded cards into output documents: plain JSON,
// osdd prefetch results and osdd materialized results.
package export

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/opensdd/osdd-api/clients/go/osdd"
	"github.com/opensdd/osdd-trello/core/trello"
	"google.golang.org/protobuf/encoding/protojson"
)

// AllCardsID is the prefetch data id holding the whole card list.
const AllCardsID = "trello_cards"

// CardsDir is the directory of per-card files in a materialized result.
const CardsDir = "cards"

// IndexFile is the file listing every card in a materialized result.
const IndexFile = "index.json"

// CardDocument is the serialized form of a card.
type CardDocument struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ListID   string `json:"listId,omitempty"`
	List     string `json:"list,omitempty"`
	IssueKey string `json:"issueKey,omitempty"`
}

// Documents converts cards to their serialized form, preserving order.
func Documents(cards []*trello.Card) []CardDocument {
	docs := make([]CardDocument, 0, len(cards))
	for _, c := range cards {
		if c == nil {
			continue
		}
		d := CardDocument{ID: c.ID, Name: c.Name, IssueKey: c.GetIssueKey()}
		if c.List != nil {
			d.ListID = c.List.ID
			d.List = c.List.Name
		}
		docs = append(docs, d)
	}
	return docs
}

// JSON renders cards as an indented JSON array.
func JSON(cards []*trello.Card) ([]byte, error) {
	b, err := json.MarshalIndent(Documents(cards), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cards: %w", err)
	}
	return b, nil
}

// PrefetchResult builds an osdd prefetch result with one entry for the whole
// card list and one entry per card keyed by card ID.
func PrefetchResult(cards []*trello.Card) (*osdd.PrefetchResult, error) {
	docs := Documents(cards)

	all, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cards: %w", err)
	}
	data := make([]*osdd.FetchedData, 0, len(docs)+1)
	data = append(data, fetchedData(AllCardsID, string(all)))

	for _, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal card %s: %w", d.ID, err)
		}
		data = append(data, fetchedData(d.ID, string(b)))
	}

	res := &osdd.PrefetchResult{}
	res.SetData(data)
	return res, nil
}

func fetchedData(id, content string) *osdd.FetchedData {
	d := &osdd.FetchedData{}
	d.SetId(id)
	d.SetData(content)
	return d
}

// PrefetchJSON renders cards as a protojson-encoded osdd prefetch result, the
// format expected from prefetch commands.
func PrefetchJSON(cards []*trello.Card) ([]byte, error) {
	res, err := PrefetchResult(cards)
	if err != nil {
		return nil, err
	}
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prefetch result: %w", err)
	}
	return b, nil
}

// MaterializedResult lays cards out as files: an index of all cards plus one
// file per card under CardsDir.
func MaterializedResult(cards []*trello.Card) (*osdd.MaterializedResult, error) {
	index, err := JSON(cards)
	if err != nil {
		return nil, err
	}

	dir := CardsDir
	entries := []*osdd.MaterializedResult_Entry{
		osdd.MaterializedResult_Entry_builder{
			File: osdd.FullFileContent_builder{Path: IndexFile, Content: string(index)}.Build(),
		}.Build(),
		osdd.MaterializedResult_Entry_builder{Directory: &dir}.Build(),
	}

	for _, d := range Documents(cards) {
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal card %s: %w", d.ID, err)
		}
		entries = append(entries, osdd.MaterializedResult_Entry_builder{
			File: osdd.FullFileContent_builder{
				Path:    path.Join(CardsDir, d.ID+".json"),
				Content: string(b),
			}.Build(),
		}.Build())
	}
	return osdd.MaterializedResult_builder{Entries: entries}.Build(), nil
}
