package service

import (
	"context"

	"go.uber.org/zap"

	"nuclear/internal/metrics"
	"nuclear/internal/models"
	"nuclear/internal/repository"
)

// PointsNotification is what a user is told after a ledger write
type PointsNotification struct {
	ToEmail    string
	ToName     string
	Points     int
	BlockID    string
	BlockTitle string
	Reason     string
}

// Notifier delivers points notifications. *EmailService implements it.
type Notifier interface {
	SendPointsAwarded(ctx context.Context, n PointsNotification) error
}

// PointsService records ledger entries and notifies the awarded user
type PointsService struct {
	repos    *repository.Repositories
	notifier Notifier
	log      *zap.Logger
}

func NewPointsService(repos *repository.Repositories, notifier Notifier, log *zap.Logger) *PointsService {
	return &PointsService{repos: repos, notifier: notifier, log: log.Named("points")}
}

// Award creates a PointsUpdate. A notification failure is logged and never
// fails the write.
func (s *PointsService) Award(ctx context.Context, in models.CreatePointsUpdateInput) (*models.PointsUpdate, error) {
	p, err := s.repos.PointsUpdates.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	metrics.PointsAwarded.Add(float64(p.Points))

	if p.UserID != nil && s.notifier != nil {
		s.notify(ctx, p)
	}
	return p, nil
}

func (s *PointsService) notify(ctx context.Context, p *models.PointsUpdate) {
	log := s.log.With(zap.String("points_update_id", p.ID))

	user, err := s.repos.Users.GetByID(ctx, *p.UserID)
	if err != nil || user == nil {
		log.Warn("skipping notification: user lookup failed", zap.Error(err))
		return
	}

	n := PointsNotification{ToEmail: user.Email, Points: p.Points}
	if user.Name != nil {
		n.ToName = *user.Name
	}
	if p.Reason != nil {
		n.Reason = *p.Reason
	}
	if p.BlockID != nil {
		n.BlockID = *p.BlockID
		if block, err := s.repos.Blocks.GetByID(ctx, *p.BlockID); err == nil && block != nil {
			n.BlockTitle = block.Title
		}
	}

	if err := s.notifier.SendPointsAwarded(ctx, n); err != nil {
		log.Warn("points notification failed", zap.Error(err))
	}
}
