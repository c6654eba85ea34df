package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclear/internal/apperr"
	"nuclear/internal/models"
)

func TestFolderHierarchyScenario(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user, err := repos.Users.Create(ctx, models.CreateUserInput{Email: "a@x.com", Role: "STUDENT"})
	require.NoError(t, err)
	root := mustFolder(t, repos, user.ID, "Root", nil)
	child := mustFolder(t, repos, user.ID, "Child", &root.ID)

	children, err := repos.Folders.GetChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)
	assert.Equal(t, "Child", children[0].Name)

	_, err = repos.Folders.Update(ctx, root.ID, models.UpdateFolderInput{ParentID: &child.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFolderCycle))

	got, err := repos.Folders.MustGetByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestFolderCycleDetection(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "tree@x.com")
	a := mustFolder(t, repos, user.ID, "A", nil)
	b := mustFolder(t, repos, user.ID, "B", &a.ID)
	c := mustFolder(t, repos, user.ID, "C", &b.ID)

	tests := []struct {
		name     string
		folderID string
		parentID string
	}{
		{name: "self", folderID: a.ID, parentID: a.ID},
		{name: "direct child", folderID: a.ID, parentID: b.ID},
		{name: "grandchild", folderID: a.ID, parentID: c.ID},
		{name: "middle to child", folderID: b.ID, parentID: c.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := repos.Folders.MustGetByID(ctx, tt.folderID)
			require.NoError(t, err)

			_, err = repos.Folders.Move(ctx, tt.folderID, &tt.parentID)
			require.ErrorIs(t, err, ErrFolderCycle)
			assert.True(t, apperr.Is(err, apperr.KindValidation))

			after, err := repos.Folders.MustGetByID(ctx, tt.folderID)
			require.NoError(t, err)
			assert.Equal(t, before.ParentID, after.ParentID)
		})
	}

	t.Run("legal move", func(t *testing.T) {
		moved, err := repos.Folders.Move(ctx, c.ID, &a.ID)
		require.NoError(t, err)
		require.NotNil(t, moved.ParentID)
		assert.Equal(t, a.ID, *moved.ParentID)
	})

	t.Run("move to root", func(t *testing.T) {
		moved, err := repos.Folders.Move(ctx, b.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, moved.ParentID)
	})
}

func TestFolderParentMustShareOwner(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	alice := mustUser(t, repos, "alice@x.com")
	bob := mustUser(t, repos, "bob@x.com")
	alicesRoot := mustFolder(t, repos, alice.ID, "Alice", nil)

	_, err := repos.Folders.Create(ctx, models.CreateFolderInput{Name: "Bob", AuthorID: bob.ID, ParentID: &alicesRoot.ID})
	assert.True(t, apperr.Is(err, apperr.KindRelationship))

	_, err = repos.Folders.Create(ctx, models.CreateFolderInput{Name: "Orphan", AuthorID: alice.ID, ParentID: ptr("missing")})
	assert.True(t, apperr.Is(err, apperr.KindRelationship))

	_, err = repos.Folders.Create(ctx, models.CreateFolderInput{Name: "Nobody", AuthorID: "missing"})
	assert.True(t, apperr.Is(err, apperr.KindRelationship))
}

func TestFolderAncestorsAndPath(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "path@x.com")
	physics := mustFolder(t, repos, user.ID, "Physics", nil)
	nuclear := mustFolder(t, repos, user.ID, "Nuclear", &physics.ID)
	fission := mustFolder(t, repos, user.ID, "Fission", &nuclear.ID)

	ancestors, err := repos.Folders.GetAncestors(ctx, fission.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, nuclear.ID, ancestors[0].ID)
	assert.Equal(t, physics.ID, ancestors[1].ID)

	path, err := repos.Folders.GetPath(ctx, fission.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Physics", "Nuclear", "Fission"}, path)

	isDesc, err := repos.Folders.IsDescendant(ctx, fission.ID, physics.ID)
	require.NoError(t, err)
	assert.True(t, isDesc)

	isDesc, err = repos.Folders.IsDescendant(ctx, physics.ID, fission.ID)
	require.NoError(t, err)
	assert.False(t, isDesc)

	parent, err := repos.Folders.GetParent(ctx, fission.ID)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, nuclear.ID, parent.ID)

	roots, err := repos.Folders.GetRootFolders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, physics.ID, roots[0].ID)

	owner, err := repos.Folders.GetOwner(ctx, fission.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.ID)
}

func TestFolderDeleteRequiresEmpty(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "cleanup@x.com")
	parent := mustFolder(t, repos, user.ID, "Parent", nil)
	child := mustFolder(t, repos, user.ID, "Child", &parent.ID)

	_, err := repos.Folders.Delete(ctx, parent.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	block, err := repos.Blocks.Create(ctx, models.CreateBlockInput{Title: "Filed", Content: "c", AuthorID: user.ID, FolderID: &child.ID})
	require.NoError(t, err)

	_, err = repos.Folders.Delete(ctx, child.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	blocks, err := repos.Folders.GetBlocks(ctx, child.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, block.ID, blocks[0].ID)

	_, err = repos.Blocks.Update(ctx, block.ID, models.UpdateBlockInput{FolderID: ptr("")})
	require.NoError(t, err)

	deleted, err := repos.Folders.Delete(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, deleted.ID)

	exists, err := repos.Folders.Exists(ctx, child.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFolderReparent(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "reparent@x.com")
	top := mustFolder(t, repos, user.ID, "Top", nil)
	mid := mustFolder(t, repos, user.ID, "Mid", &top.ID)
	leaf := mustFolder(t, repos, user.ID, "Leaf", &mid.ID)
	block, err := repos.Blocks.Create(ctx, models.CreateBlockInput{Title: "B", Content: "c", AuthorID: user.ID, FolderID: &mid.ID})
	require.NoError(t, err)

	require.NoError(t, repos.Folders.Reparent(ctx, mid.ID, &top.ID))

	gotLeaf, err := repos.Folders.MustGetByID(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, top.ID, *gotLeaf.ParentID)

	gotBlock, err := repos.Blocks.MustGetByID(ctx, block.ID)
	require.NoError(t, err)
	assert.Equal(t, top.ID, *gotBlock.FolderID)
}

func TestFolderUpdateChangesOnlySuppliedFields(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "rename@x.com")
	parent := mustFolder(t, repos, user.ID, "Parent", nil)
	folder, err := repos.Folders.Create(ctx, models.CreateFolderInput{
		Name: "Old", Description: ptr("keep me"), AuthorID: user.ID, ParentID: &parent.ID,
	})
	require.NoError(t, err)

	updated, err := repos.Folders.Update(ctx, folder.ID, models.UpdateFolderInput{Name: ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "keep me", *updated.Description)
	assert.Equal(t, parent.ID, *updated.ParentID)
}

func TestFolderConcurrentOppositeMovesNeverCycle(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "race@x.com")
	a := mustFolder(t, repos, user.ID, "A", nil)
	b := mustFolder(t, repos, user.ID, "B", nil)

	for round := 0; round < 25; round++ {
		_, err := repos.Folders.Move(ctx, a.ID, nil)
		require.NoError(t, err)
		_, err = repos.Folders.Move(ctx, b.ID, nil)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		moves := [][2]string{{a.ID, b.ID}, {b.ID, a.ID}}
		for i, m := range moves {
			wg.Add(1)
			go func(i int, id, parentID string) {
				defer wg.Done()
				_, errs[i] = repos.Folders.Move(ctx, id, &parentID)
			}(i, m[0], m[1])
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, ErrFolderCycle), "round %d: %v", round, err)
		}
		assert.Equal(t, 1, succeeded, "round %d", round)

		aUnderB, err := repos.Folders.IsDescendant(ctx, a.ID, b.ID)
		require.NoError(t, err)
		bUnderA, err := repos.Folders.IsDescendant(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.False(t, aUnderB && bUnderA, "round %d persisted a cycle", round)
	}
}
