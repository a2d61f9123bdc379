package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// GoalService manages savings goals and their contributions.
type GoalService struct {
	crud          crud[*models.Goal]
	notifications *NotificationService
	locks         *userLocks
	now           Clock
}

// markCompletion keeps CompletedAt in line with the goal's progress.
func (s *GoalService) markCompletion(g *models.Goal) {
	switch {
	case calculator.GoalCompleted(g) && g.CompletedAt == nil:
		now := s.now()
		g.CompletedAt = &now
	case !calculator.GoalCompleted(g):
		g.CompletedAt = nil
	}
}

// Create stores a new goal.
func (s *GoalService) Create(ctx context.Context, userID string, g *models.Goal) (calculator.GoalProgress, error) {
	if g.Priority == "" {
		g.Priority = models.PriorityMedium
	}
	if g.Contributions == nil {
		g.Contributions = []models.Contribution{}
	}
	s.markCompletion(g)
	if err := s.crud.create(ctx, userID, g); err != nil {
		return calculator.GoalProgress{}, err
	}
	slog.Info("Goal created", "user_id", userID, "goal_id", g.ID, "target", g.TargetAmount)
	return calculator.ProgressOf(g, s.now()), nil
}

// Get returns a goal with its progress.
func (s *GoalService) Get(ctx context.Context, userID, id string) (calculator.GoalProgress, error) {
	g, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return calculator.GoalProgress{}, err
	}
	return calculator.ProgressOf(g, s.now()), nil
}

// List returns the user's goals with their progress, oldest first.
func (s *GoalService) List(ctx context.Context, userID string) ([]calculator.GoalProgress, error) {
	goals, err := s.crud.list(ctx, userID, storage.Query{})
	if err != nil {
		return nil, err
	}
	now := s.now()
	result := make([]calculator.GoalProgress, len(goals))
	for i, g := range goals {
		result[i] = calculator.ProgressOf(g, now)
	}
	return result, nil
}

// Update changes a goal. Contributions cannot be edited this way.
func (s *GoalService) Update(ctx context.Context, userID, id string, apply func(*models.Goal) error) (calculator.GoalProgress, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	g, err := s.crud.update(ctx, userID, id, func(g *models.Goal) error {
		contributions := g.Contributions
		if err := apply(g); err != nil {
			return err
		}
		g.Contributions = contributions
		s.markCompletion(g)
		return nil
	})
	if err != nil {
		return calculator.GoalProgress{}, err
	}
	return calculator.ProgressOf(g, s.now()), nil
}

// Delete removes a goal.
func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	return s.crud.delete(ctx, userID, id)
}

// Contribute adds amount to a goal. Reaching 100 % for the first time sends
// a goal_achieved notification.
func (s *GoalService) Contribute(ctx context.Context, userID, id string, amount float64, note string) (calculator.GoalProgress, error) {
	if amount <= 0 {
		return calculator.GoalProgress{}, invalid("amount", "must be greater than zero")
	}

	unlock := s.locks.lock(userID)
	var reached bool
	g, err := s.crud.update(ctx, userID, id, func(g *models.Goal) error {
		wasCompleted := calculator.GoalCompleted(g)
		g.CurrentAmount = addAmounts(g.CurrentAmount, amount)
		g.Contributions = append(g.Contributions, models.Contribution{
			Amount: amount,
			Date:   s.now(),
			Note:   note,
		})
		s.markCompletion(g)
		reached = !wasCompleted && calculator.GoalCompleted(g)
		return nil
	})
	unlock()
	if err != nil {
		return calculator.GoalProgress{}, err
	}

	slog.Info("Goal contribution", "user_id", userID, "goal_id", id, "amount", amount)

	if reached {
		_, err := s.notifications.Notify(ctx, userID, &models.Notification{
			Type:    models.NotifyGoalAchieved,
			Title:   fmt.Sprintf("Goal achieved: %s", g.Name),
			Message: fmt.Sprintf("You reached your savings target for %s.", g.Name),
			Link:    "/goals/" + g.ID,
		})
		if err != nil {
			slog.Error("Failed to send goal notification", "goal_id", g.ID, "error", err)
		}
	}
	return calculator.ProgressOf(g, s.now()), nil
}

// Summary totals all goals of the user.
func (s *GoalService) Summary(ctx context.Context, userID string) (calculator.GoalSummary, error) {
	goals, err := s.crud.list(ctx, userID, storage.Query{})
	if err != nil {
		return calculator.GoalSummary{}, err
	}
	return calculator.SummarizeGoals(goals), nil
}
