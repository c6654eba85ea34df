package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclear/internal/database"
	"nuclear/internal/models"
)

func TestListOptionsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{name: "defaults", in: ListOptions{}, want: ListOptions{Page: 1, Limit: DefaultPageLimit}},
		{name: "clamps limit", in: ListOptions{Page: 3, Limit: 500}, want: ListOptions{Page: 3, Limit: MaxPageLimit}},
		{name: "trims search", in: ListOptions{Page: 1, Limit: 5, Search: "  core "}, want: ListOptions{Page: 1, Limit: 5, Search: "core"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%100!%!_done%", likePattern("100%_DONE"))
}

func TestListPaginatesAndSearches(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		mustUser(t, repos, fmt.Sprintf("user%02d@example.com", i))
	}
	mustUser(t, repos, "physicist@lab.org")

	page, total, err := repos.Users.List(ctx, ListOptions{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	assert.Len(t, page, 5)

	last, _, err := repos.Users.List(ctx, ListOptions{Page: 3, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, last, 3)

	found, total, err := repos.Users.List(ctx, ListOptions{Search: "LAB.ORG"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, "physicist@lab.org", found[0].Email)
}

func TestRepositoriesWithTxRollback(t *testing.T) {
	db := setupTestDB(t)
	repos := New(db)
	ctx := context.Background()

	var created *models.User
	err := db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		created, err = repos.WithTx(tx).Users.Create(ctx, models.CreateUserInput{Email: "tx@example.com"})
		if err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)
	require.NotNil(t, created)

	exists, err := repos.Users.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

// shrinkingDB deletes a row right after the first COUNT it serves, the way
// a concurrent request would between the count and the pick.
type shrinkingDB struct {
	database.DBTX
	deleteID string
	done     bool
}

func (d *shrinkingDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if d.done || !strings.HasPrefix(query, "SELECT COUNT(*)") {
		return d.DBTX.QueryRowContext(ctx, query, args...)
	}
	d.done = true
	var n int
	if err := d.DBTX.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return d.DBTX.QueryRowContext(ctx, query, args...)
	}
	if _, err := d.DBTX.ExecContext(ctx, "DELETE FROM topics WHERE id = ?", d.deleteID); err != nil {
		panic(err)
	}
	return d.DBTX.QueryRowContext(ctx, "SELECT ?", n)
}

func TestQueryRandomSurvivesConcurrentDelete(t *testing.T) {
	db := setupTestDB(t)
	repos := New(db)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		gone, err := repos.Topics.Create(ctx, models.CreateTopicInput{Name: fmt.Sprintf("gone %d", i)})
		require.NoError(t, err)
		kept, err := repos.Topics.Create(ctx, models.CreateTopicInput{Name: fmt.Sprintf("kept %d", i)})
		require.NoError(t, err)

		stale := &shrinkingDB{DBTX: db, deleteID: gone.ID}
		got, err := queryRandom(ctx, stale, scanTopic, "topics", topicColumns, "")
		require.NoError(t, err)
		require.NotNil(t, got, "iteration %d", i)
		assert.Equal(t, kept.ID, got.ID)

		_, err = repos.Topics.Delete(ctx, kept.ID)
		require.NoError(t, err)
	}
}
