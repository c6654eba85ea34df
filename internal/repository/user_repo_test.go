package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclear/internal/apperr"
	"nuclear/internal/models"
)

func TestUserRoundTrip(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	created, err := repos.Users.Create(ctx, models.CreateUserInput{Email: "a@x.com", Name: ptr("Marie Curie"), Role: "TEACHER"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.RoleTeacher, created.Role)

	got, err := repos.Users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Role, got.Role)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))
}

func TestUserDefaultsToStudent(t *testing.T) {
	repos := setupRepos(t)

	user := mustUser(t, repos, "student@example.com")
	assert.Equal(t, models.RoleStudent, user.Role)
}

func TestUserGetByIDMissing(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	got, err := repos.Users.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repos.Users.MustGetByID(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserDuplicateEmailConflicts(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	mustUser(t, repos, "a@x.com")

	_, err := repos.Users.Create(ctx, models.CreateUserInput{Email: "A@X.com"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUserUpdateChangesOnlySuppliedFields(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	created, err := repos.Users.Create(ctx, models.CreateUserInput{Email: "a@x.com", Name: ptr("Enrico")})
	require.NoError(t, err)

	updated, err := repos.Users.Update(ctx, created.ID, models.UpdateUserInput{Role: ptr("ADMIN")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, "Enrico", *updated.Name)

	got, err := repos.Users.MustGetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "Enrico", *got.Name)
	assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
}

func TestUserUpdateEmailConflict(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	mustUser(t, repos, "taken@x.com")
	other := mustUser(t, repos, "free@x.com")

	_, err := repos.Users.Update(ctx, other.ID, models.UpdateUserInput{Email: ptr("taken@x.com")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = repos.Users.Update(ctx, "missing", models.UpdateUserInput{Name: ptr("Lise")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserDelete(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "gone@x.com")

	deleted, err := repos.Users.Delete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, deleted.ID)

	got, err := repos.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := repos.Users.Exists(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repos.Users.Delete(ctx, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserDeleteBlockedByOwnedContent(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "author@x.com")
	mustBlock(t, repos, user.ID, "Fission")

	_, err := repos.Users.Delete(ctx, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUserDeleteDetachesPoints(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "earner@x.com")
	entry, err := repos.PointsUpdates.Create(ctx, models.CreatePointsUpdateInput{Points: 5, UserID: &user.ID})
	require.NoError(t, err)

	_, err = repos.Users.Delete(ctx, user.ID)
	require.NoError(t, err)

	got, err := repos.PointsUpdates.MustGetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
}

func TestUserRelationships(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "owner@x.com")
	other := mustUser(t, repos, "other@x.com")
	block := mustBlock(t, repos, user.ID, "Reactors")
	mustBlock(t, repos, other.ID, "Not mine")
	mustFolder(t, repos, user.ID, "Physics", nil)

	for _, pts := range []int{3, 4} {
		_, err := repos.PointsUpdates.Create(ctx, models.CreatePointsUpdateInput{Points: pts, UserID: &user.ID, BlockID: &block.ID})
		require.NoError(t, err)
	}

	blocks, err := repos.Users.GetBlocks(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, block.ID, blocks[0].ID)

	folders, err := repos.Users.GetFolders(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)

	points, err := repos.Users.GetPointsUpdates(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, points, 2)

	total, err := repos.Users.GetTotalPoints(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	byEmail, err := repos.Users.GetByEmail(ctx, " OWNER@x.com ")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUserCreateValidation(t *testing.T) {
	repos := setupRepos(t)

	_, err := repos.Users.Create(context.Background(), models.CreateUserInput{Email: "not-an-email"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "email")
}
