package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuclear/internal/apperr"
	"nuclear/internal/models"
)

func TestBlockRoundTrip(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "author@x.com")
	folder := mustFolder(t, repos, user.ID, "Lessons", nil)

	created, err := repos.Blocks.Create(ctx, models.CreateBlockInput{
		Title: "Chain reactions", Content: "Neutrons split nuclei.", AuthorID: user.ID, FolderID: &folder.ID, Published: true,
	})
	require.NoError(t, err)

	got, err := repos.Blocks.MustGetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Content, got.Content)
	assert.Equal(t, user.ID, got.AuthorID)
	assert.Equal(t, folder.ID, *got.FolderID)
	assert.True(t, got.Published)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestBlockCreateMissingAuthor(t *testing.T) {
	repos := setupRepos(t)

	_, err := repos.Blocks.Create(context.Background(), models.CreateBlockInput{Title: "T", Content: "C", AuthorID: "nobody"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindRelationship))

	e, _ := apperr.As(err)
	assert.Contains(t, e.Fields, "authorId")
}

func TestBlockCreateMissingFolder(t *testing.T) {
	repos := setupRepos(t)
	user := mustUser(t, repos, "a@x.com")

	_, err := repos.Blocks.Create(context.Background(), models.CreateBlockInput{
		Title: "T", Content: "C", AuthorID: user.ID, FolderID: ptr("nowhere"),
	})
	assert.True(t, apperr.Is(err, apperr.KindRelationship))
}

func TestBlockUpdateAndPublish(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "a@x.com")
	block := mustBlock(t, repos, user.ID, "Draft")

	updated, err := repos.Blocks.Update(ctx, block.ID, models.UpdateBlockInput{Title: ptr("Final")})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, block.Content, updated.Content)
	assert.False(t, updated.Published)

	published, err := repos.Blocks.SetPublished(ctx, block.ID, true)
	require.NoError(t, err)
	assert.True(t, published.Published)

	list, err := repos.Blocks.GetPublished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, block.ID, list[0].ID)

	_, err = repos.Blocks.Update(ctx, "missing", models.UpdateBlockInput{Title: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBlockDeleteDetachesChildren(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "a@x.com")
	block := mustBlock(t, repos, user.ID, "Doomed")

	topic, err := repos.Topics.Create(ctx, models.CreateTopicInput{Name: "Isotopes", BlockID: &block.ID})
	require.NoError(t, err)
	quiz, err := repos.Quizzes.Create(ctx, models.CreateQuizInput{Title: "Q", BlockID: &block.ID})
	require.NoError(t, err)
	points, err := repos.PointsUpdates.Create(ctx, models.CreatePointsUpdateInput{Points: 1, BlockID: &block.ID})
	require.NoError(t, err)

	deleted, err := repos.Blocks.Delete(ctx, block.ID)
	require.NoError(t, err)
	assert.Equal(t, block.ID, deleted.ID)

	gotTopic, err := repos.Topics.MustGetByID(ctx, topic.ID)
	require.NoError(t, err)
	assert.Nil(t, gotTopic.BlockID)

	gotQuiz, err := repos.Quizzes.MustGetByID(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, gotQuiz.BlockID)

	gotPoints, err := repos.PointsUpdates.MustGetByID(ctx, points.ID)
	require.NoError(t, err)
	assert.Nil(t, gotPoints.BlockID)

	_, err = repos.Blocks.Delete(ctx, block.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBlockRelationships(t *testing.T) {
	repos := setupRepos(t)
	ctx := context.Background()

	user := mustUser(t, repos, "a@x.com")
	folder := mustFolder(t, repos, user.ID, "F", nil)
	block, err := repos.Blocks.Create(ctx, models.CreateBlockInput{Title: "B", Content: "C", AuthorID: user.ID, FolderID: &folder.ID})
	require.NoError(t, err)
	unfiled := mustBlock(t, repos, user.ID, "Loose")

	_, err = repos.Questions.Create(ctx, models.CreateQuestionInput{Text: "Why?", BlockID: &block.ID})
	require.NoError(t, err)
	_, err = repos.FillInTheBlanks.Create(ctx, models.CreateFillInTheBlankInput{Sentence: "___ rods", Answer: "Control", BlockID: &block.ID})
	require.NoError(t, err)

	author, err := repos.Blocks.GetAuthor(ctx, block.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, author.ID)

	gotFolder, err := repos.Blocks.GetFolder(ctx, block.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, gotFolder.ID)

	noFolder, err := repos.Blocks.GetFolder(ctx, unfiled.ID)
	require.NoError(t, err)
	assert.Nil(t, noFolder)

	questions, err := repos.Blocks.GetQuestions(ctx, block.ID)
	require.NoError(t, err)
	assert.Len(t, questions, 1)

	fibs, err := repos.Blocks.GetFillInTheBlanks(ctx, block.ID)
	require.NoError(t, err)
	assert.Len(t, fibs, 1)

	quizzes, err := repos.Blocks.GetQuizzes(ctx, block.ID)
	require.NoError(t, err)
	assert.Empty(t, quizzes)
	assert.NotNil(t, quizzes)

	byAuthor, err := repos.Blocks.GetByAuthor(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byFolder, err := repos.Blocks.GetByFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Len(t, byFolder, 1)
}
