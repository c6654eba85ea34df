package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nuclear/internal/database"
	"nuclear/internal/models"
	"nuclear/internal/repository"
)

// CreateBlockWithContentInput is a block together with the content created
// inside it. BlockID on the nested inputs is ignored.
type CreateBlockWithContentInput struct {
	models.CreateBlockInput
	Topics          []models.CreateTopicInput          `json:"topics,omitempty"`
	Questions       []models.CreateQuestionInput       `json:"questions,omitempty"`
	FillInTheBlanks []models.CreateFillInTheBlankInput `json:"fillInTheBlanks,omitempty"`
	Quizzes         []models.CreateQuizInput           `json:"quizzes,omitempty"`
}

// BlockContent is a block and everything attached to it
type BlockContent struct {
	Block           *models.Block           `json:"block"`
	Topics          []models.Topic          `json:"topics"`
	Questions       []models.Question       `json:"questions"`
	FillInTheBlanks []models.FillInTheBlank `json:"fillInTheBlanks"`
	Quizzes         []models.Quiz           `json:"quizzes"`
}

// BlockOverview is the block detail view
type BlockOverview struct {
	BlockContent
	Author       *models.User         `json:"author"`
	Folder       *models.Folder       `json:"folder"`
	TotalPoints  int                  `json:"totalPoints"`
	LatestPoints *models.PointsUpdate `json:"latestPoints"`
}

// ContentService creates and assembles blocks with their content
type ContentService struct {
	db    *database.DB
	repos *repository.Repositories
	log   *zap.Logger
}

func NewContentService(db *database.DB, repos *repository.Repositories, log *zap.Logger) *ContentService {
	return &ContentService{db: db, repos: repos, log: log.Named("content")}
}

// CreateBlockWithContent creates the block and all nested content in one
// transaction. Any failure leaves nothing behind.
func (s *ContentService) CreateBlockWithContent(ctx context.Context, in CreateBlockWithContentInput) (*BlockContent, error) {
	out := &BlockContent{
		Topics:          []models.Topic{},
		Questions:       []models.Question{},
		FillInTheBlanks: []models.FillInTheBlank{},
		Quizzes:         []models.Quiz{},
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repos := s.repos.WithTx(tx)

		block, err := repos.Blocks.Create(ctx, in.CreateBlockInput)
		if err != nil {
			return err
		}
		out.Block = block
		blockID := &block.ID

		for _, t := range in.Topics {
			t.BlockID = blockID
			topic, err := repos.Topics.Create(ctx, t)
			if err != nil {
				return err
			}
			out.Topics = append(out.Topics, *topic)
		}
		for _, q := range in.Questions {
			q.BlockID = blockID
			question, err := repos.Questions.Create(ctx, q)
			if err != nil {
				return err
			}
			out.Questions = append(out.Questions, *question)
		}
		for _, f := range in.FillInTheBlanks {
			f.BlockID = blockID
			fib, err := repos.FillInTheBlanks.Create(ctx, f)
			if err != nil {
				return err
			}
			out.FillInTheBlanks = append(out.FillInTheBlanks, *fib)
		}
		for _, q := range in.Quizzes {
			q.BlockID = blockID
			quiz, err := repos.Quizzes.Create(ctx, q)
			if err != nil {
				return err
			}
			out.Quizzes = append(out.Quizzes, *quiz)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("block created with content",
		zap.String("block_id", out.Block.ID),
		zap.Int("topics", len(out.Topics)),
		zap.Int("questions", len(out.Questions)),
		zap.Int("fill_in_the_blanks", len(out.FillInTheBlanks)),
		zap.Int("quizzes", len(out.Quizzes)))
	return out, nil
}

// GetBlockOverview loads the block and its independent relations concurrently
func (s *ContentService) GetBlockOverview(ctx context.Context, id string) (*BlockOverview, error) {
	block, err := s.repos.Blocks.MustGetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &BlockOverview{BlockContent: BlockContent{Block: block}}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() (err error) {
		out.Author, err = s.repos.Users.GetByID(ctx, block.AuthorID)
		return err
	})
	g.Go(func() (err error) {
		if block.FolderID == nil {
			return nil
		}
		out.Folder, err = s.repos.Folders.GetByID(ctx, *block.FolderID)
		return err
	})
	g.Go(func() (err error) {
		out.TotalPoints, err = s.repos.PointsUpdates.GetTotalPointsForBlock(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		out.LatestPoints, err = s.repos.PointsUpdates.GetLatestForBlock(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		out.Topics, err = s.repos.Topics.GetByBlock(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		out.Questions, err = s.repos.Questions.GetByBlock(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		out.FillInTheBlanks, err = s.repos.FillInTheBlanks.GetByBlock(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		out.Quizzes, err = s.repos.Quizzes.GetByBlock(ctx, id)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
