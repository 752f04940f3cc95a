package trello

import (
	"context"
	"testing"

	"github.com/opensdd/osdd-trello/core/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Integration(t *testing.T) {
	env := testutil.IntegEnvOrSkip(t, "OSDD_TEST_TRELLO_KEY", "OSDD_TEST_TRELLO_TOKEN", "OSDD_TEST_TRELLO_BOARD", "OSDD_TEST_TRELLO_FIELD")

	s, err := NewSession(context.Background(), Config{
		Key:           env["OSDD_TEST_TRELLO_KEY"],
		Token:         env["OSDD_TEST_TRELLO_TOKEN"],
		BoardID:       env["OSDD_TEST_TRELLO_BOARD"],
		IssueKeyField: env["OSDD_TEST_TRELLO_FIELD"],
	})
	require.NoError(t, err)
	assert.NotEmpty(t, s.Lists())

	cards, err := s.LoadCards(context.Background())
	require.NoError(t, err)
	for _, c := range cards {
		require.NotNil(t, c.List, c.ID)
		_, ok := s.List(c.List.ID)
		assert.True(t, ok, c.ID)
	}
}
