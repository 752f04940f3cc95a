package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeList is a list as served by FakeTrello.
type FakeList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FakeCard is an open card as served by FakeTrello.
type FakeCard struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IDList string `json:"idList"`
}

// FakePluginData is a plugin data record as served by FakeTrello.
type FakePluginData struct {
	IDPlugin string `json:"idPlugin"`
	IDModel  string `json:"idModel"`
	Value    string `json:"value"`
}

// FakeTrello is an in-memory Trello API serving the board read endpoints and
// the batch endpoint for plugin data.
type FakeTrello struct {
	Server *httptest.Server

	mu            sync.Mutex
	lists         map[string][]FakeList
	cards         map[string][]FakeCard
	pluginData    map[string][]FakePluginData
	batchOverride func(urls []string) any
	batchURLs     [][]string
	queries       []map[string][]string
}

// NewFakeTrello starts a fake Trello server. It is closed when the test ends.
func NewFakeTrello(t testing.TB) *FakeTrello {
	t.Helper()
	f := &FakeTrello{
		lists:      map[string][]FakeList{},
		cards:      map[string][]FakeCard{},
		pluginData: map[string][]FakePluginData{},
	}

	r := chi.NewRouter()
	r.Use(f.recordQuery)
	r.Get("/boards/{boardID}/lists", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		lists, ok := f.lists[chi.URLParam(r, "boardID")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		writeJSON(w, lists)
	})
	r.Get("/boards/{boardID}/cards/open", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		cards, ok := f.cards[chi.URLParam(r, "boardID")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		writeJSON(w, cards)
	})
	r.Get("/batch", f.serveBatch)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API root of the fake server.
func (f *FakeTrello) URL() string {
	return f.Server.URL
}

// AddList adds a list to a board.
func (f *FakeTrello) AddList(boardID, id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[boardID] = append(f.lists[boardID], FakeList{ID: id, Name: name})
	if _, ok := f.cards[boardID]; !ok {
		f.cards[boardID] = []FakeCard{}
	}
}

// AddCard adds an open card to a board.
func (f *FakeTrello) AddCard(boardID, id, name, listID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[boardID] = append(f.cards[boardID], FakeCard{ID: id, Name: name, IDList: listID})
}

// AddPluginData attaches a plugin data record to a card.
func (f *FakeTrello) AddPluginData(cardID string, data FakePluginData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pluginData[cardID] = append(f.pluginData[cardID], data)
}

// SetCustomField attaches a Custom Fields record holding fields to a card.
func (f *FakeTrello) SetCustomField(cardID, pluginID string, fields map[string]any) {
	value, _ := json.Marshal(map[string]any{"fields": fields})
	f.AddPluginData(cardID, FakePluginData{IDPlugin: pluginID, IDModel: cardID, Value: string(value)})
}

// OverrideBatch replaces batch responses with fn's result.
func (f *FakeTrello) OverrideBatch(fn func(urls []string) any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchOverride = fn
}

// BatchURLs returns the sub-request URLs of every batch call received so far.
func (f *FakeTrello) BatchURLs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.batchURLs))
	copy(out, f.batchURLs)
	return out
}

// Queries returns the query parameters of every request received so far.
func (f *FakeTrello) Queries() []map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string][]string, len(f.queries))
	copy(out, f.queries)
	return out
}

func (f *FakeTrello) recordQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query())
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeTrello) serveBatch(w http.ResponseWriter, r *http.Request) {
	urls := strings.Split(r.URL.Query().Get("urls"), ",")

	f.mu.Lock()
	f.batchURLs = append(f.batchURLs, urls)
	override := f.batchOverride
	f.mu.Unlock()

	if override != nil {
		writeJSON(w, override(urls))
		return
	}

	resp := make([]map[string]any, 0, len(urls))
	for _, u := range urls {
		cardID, ok := strings.CutPrefix(u, "/cards/")
		if !ok {
			resp = append(resp, map[string]any{"400": "bad url"})
			continue
		}
		cardID = strings.TrimSuffix(strings.TrimSuffix(cardID, "/"), "/pluginData")
		f.mu.Lock()
		data := f.pluginData[cardID]
		f.mu.Unlock()
		if data == nil {
			data = []FakePluginData{}
		}
		resp = append(resp, map[string]any{"200": data})
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
