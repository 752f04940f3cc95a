package trello

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opensdd/osdd-trello/core/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBoard = "board"

func newTestSession(t *testing.T, fake *testutil.FakeTrello) *Session {
	t.Helper()
	withBaseURL(t, fake.URL())
	s, err := NewSession(context.Background(), Config{Key: "k", Token: "t", BoardID: testBoard, IssueKeyField: "cf1"})
	require.NoError(t, err)
	return s
}

func fakeWithLists(t *testing.T) *testutil.FakeTrello {
	t.Helper()
	fake := testutil.NewFakeTrello(t)
	fake.AddList(testBoard, "L1", "To Do")
	fake.AddList(testBoard, "L2", "Done")
	return fake
}

func TestSession_LoadCards_EndToEnd(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Fix bug", "L1")
	fake.SetCustomField("C1", CustomFieldsPluginID, map[string]any{"cf1": "JIRA-42"})
	s := newTestSession(t, fake)

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Fix bug", cards[0].Name)
	assert.Equal(t, "To Do", cards[0].ListName())
	require.NotNil(t, cards[0].IssueKey)
	assert.Equal(t, "JIRA-42", *cards[0].IssueKey)
	assert.Equal(t, "Fix bug (JIRA-42) [To Do]", cards[0].String())

	list, ok := s.List("L1")
	require.True(t, ok)
	assert.Same(t, list, cards[0].List)
	assert.Equal(t, cards, s.Cards())

	batches := fake.BatchURLs()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"/cards/C1/pluginData"}, batches[0])
}

func TestSession_LoadCards_RequestsCardFields(t *testing.T) {
	fake := fakeWithLists(t)
	s := newTestSession(t, fake)

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Empty(t, fake.BatchURLs())

	queries := fake.Queries()
	require.Len(t, queries, 2)
	assert.Equal(t, []string{"name,idList"}, queries[1]["fields"])
}

func TestSession_LoadCards_CardWithoutCustomField(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "No field", "L2")
	fake.AddCard(testBoard, "C2", "Other field", "L2")
	fake.SetCustomField("C2", CustomFieldsPluginID, map[string]any{"cf9": "X"})
	fake.AddCard(testBoard, "C3", "Other plugin", "L1")
	fake.SetCustomField("C3", "some-other-plugin", map[string]any{"cf1": "IGNORED-1"})
	s := newTestSession(t, fake)

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 3)
	for _, c := range cards {
		assert.Nil(t, c.IssueKey, c.ID)
		assert.Empty(t, c.GetIssueKey())
	}
}

func TestSession_LoadCards_ChunksInOrder(t *testing.T) {
	fake := fakeWithLists(t)
	var want []string
	for i := 1; i <= 25; i++ {
		id := fmt.Sprintf("C%02d", i)
		want = append(want, id)
		fake.AddCard(testBoard, id, "Card "+id, "L1")
		fake.SetCustomField(id, CustomFieldsPluginID, map[string]any{"cf1": "KEY-" + id})
	}
	s := newTestSession(t, fake)

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 25)

	batches := fake.BatchURLs()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)

	var requested []string
	for _, b := range batches {
		for _, u := range b {
			requested = append(requested, strings.TrimSuffix(strings.TrimPrefix(u, "/cards/"), "/pluginData"))
		}
	}
	assert.Equal(t, want, requested)

	for i, c := range cards {
		assert.Equal(t, want[i], c.ID)
		assert.Equal(t, "KEY-"+want[i], c.GetIssueKey())
	}
}

func TestSession_LoadCards_UnknownList(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Orphan", "L9")
	s := newTestSession(t, fake)

	_, err := s.LoadCards(context.Background())
	var unknown *UnknownListReferenceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "L9", unknown.ListID)
	assert.Equal(t, "C1", unknown.CardID)
}

func TestSession_LoadCards_BatchSizeMismatch(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Fix bug", "L1")
	fake.OverrideBatch(func(urls []string) any { return []any{} })
	s := newTestSession(t, fake)

	cards, err := s.LoadCards(context.Background())
	assert.Nil(t, cards)
	var mismatch *BatchSizeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 0, mismatch.Received)
	assert.Equal(t, []string{"C1"}, mismatch.CardIDs)
	assert.JSONEq(t, `[]`, string(mismatch.Response))
	assert.Empty(t, s.Cards())
}

func TestSession_LoadCards_FailingChunkAbortsRest(t *testing.T) {
	fake := fakeWithLists(t)
	for i := 1; i <= 15; i++ {
		fake.AddCard(testBoard, fmt.Sprintf("C%02d", i), "Card", "L1")
	}
	fake.OverrideBatch(func(urls []string) any { return []any{map[string]any{"200": []any{}}} })
	s := newTestSession(t, fake)

	_, err := s.LoadCards(context.Background())
	var mismatch *BatchSizeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Len(t, mismatch.CardIDs, 10)
	assert.Len(t, fake.BatchURLs(), 1)
}

func TestSession_LoadCards_PluginDataErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *testutil.FakeTrello)
		check func(t *testing.T, err error)
	}{
		{
			name: "multiple custom fields records",
			setup: func(f *testutil.FakeTrello) {
				f.SetCustomField("C1", CustomFieldsPluginID, map[string]any{"cf1": "A-1"})
				f.SetCustomField("C1", CustomFieldsPluginID, map[string]any{"cf1": "A-2"})
			},
			check: func(t *testing.T, err error) {
				var multi *MultiplePluginDataError
				require.True(t, errors.As(err, &multi))
				assert.Equal(t, "C1", multi.CardID)
			},
		},
		{
			name: "model mismatch",
			setup: func(f *testutil.FakeTrello) {
				f.AddPluginData("C1", testutil.FakePluginData{IDPlugin: CustomFieldsPluginID, IDModel: "C2", Value: `{"fields":{"cf1":"A-1"}}`})
			},
			check: func(t *testing.T, err error) {
				var mismatch *PluginDataModelMismatchError
				require.True(t, errors.As(err, &mismatch))
				assert.Equal(t, "C1", mismatch.CardID)
				assert.Equal(t, "C2", mismatch.ModelID)
			},
		},
		{
			name: "failed sub-request",
			setup: func(f *testutil.FakeTrello) {
				f.OverrideBatch(func(urls []string) any {
					return []any{map[string]any{"401": map[string]any{"message": "unauthorized"}}}
				})
			},
			check: func(t *testing.T, err error) {
				var status *BatchEntryStatusError
				require.True(t, errors.As(err, &status))
				assert.Equal(t, "C1", status.CardID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fakeWithLists(t)
			fake.AddCard(testBoard, "C1", "Fix bug", "L1")
			tt.setup(fake)
			s := newTestSession(t, fake)

			cards, err := s.LoadCards(context.Background())
			require.Error(t, err)
			assert.Nil(t, cards)
			tt.check(t, err)
		})
	}
}

func TestSession_LoadCards_FailureKeepsPreviousResult(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Fix bug", "L1")
	s := newTestSession(t, fake)

	first, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	fake.OverrideBatch(func(urls []string) any { return []any{} })
	_, err = s.LoadCards(context.Background())
	require.Error(t, err)
	assert.Equal(t, first, s.Cards())
}

func TestSession_LoadCards_DuplicateCardKeepsFirstPosition(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Old name", "L1")
	fake.AddCard(testBoard, "C2", "Second", "L1")
	fake.AddCard(testBoard, "C1", "New name", "L2")
	s := newTestSession(t, fake)

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "C1", cards[0].ID)
	assert.Equal(t, "New name", cards[0].Name)
	assert.Equal(t, "Done", cards[0].ListName())
	assert.Equal(t, "C2", cards[1].ID)
}

func TestSession_LoadCards_MalformedCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boards/board/lists":
			_, _ = w.Write([]byte(`[{"id":"L1","name":"To Do"}]`))
		case "/boards/board/cards/open":
			_, _ = w.Write([]byte(`[{"id":"C1","name":"Fix bug"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	withBaseURL(t, server.URL)

	s, err := NewSession(context.Background(), Config{BoardID: testBoard, IssueKeyField: "cf1"})
	require.NoError(t, err)
	_, err = s.LoadCards(context.Background())
	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "idList", malformed.Key)
}

func TestSession_LoadCards_EmptyListID(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Fix bug", "")
	s := newTestSession(t, fake)

	_, err := s.LoadCards(context.Background())
	var unknown *UnknownListReferenceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "", unknown.ListID)
}

func TestSession_IssueKeyNormalization(t *testing.T) {
	fake := fakeWithLists(t)
	fake.AddCard(testBoard, "C1", "Fix bug", "L1")
	fake.SetCustomField("C1", CustomFieldsPluginID, map[string]any{"cf1": "https://jira.example.com/browse/JIRA-7"})
	s := newTestSession(t, fake)

	var seen []string
	s.normalizeIssueKey = func(raw string) string {
		seen = append(seen, raw)
		return raw
	}

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jira.example.com/browse/JIRA-7"}, seen)
	assert.Equal(t, "https://jira.example.com/browse/JIRA-7", cards[0].GetIssueKey())
}

func TestNewSession_Errors(t *testing.T) {
	t.Run("missing field code", func(t *testing.T) {
		_, err := NewSession(context.Background(), Config{BoardID: testBoard})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "issue key field cannot be empty")
	})

	t.Run("unknown board", func(t *testing.T) {
		fake := testutil.NewFakeTrello(t)
		withBaseURL(t, fake.URL())
		_, err := NewSession(context.Background(), Config{BoardID: "nope", IssueKeyField: "cf1"})
		var reqErr *RemoteRequestError
		require.True(t, errors.As(err, &reqErr))
	})
}

func TestSession_Lists_SortedByName(t *testing.T) {
	fake := fakeWithLists(t)
	s := newTestSession(t, fake)

	lists := s.Lists()
	require.Len(t, lists, 2)
	assert.Equal(t, "Done", lists[0].Name)
	assert.Equal(t, "To Do", lists[1].Name)
}
