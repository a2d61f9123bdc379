package service

import (
	"context"

	"github.com/mmynk/finwise/internal/calculator"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// InvestmentService manages investment holdings.
type InvestmentService struct {
	crud crud[*models.Investment]
}

// Create stores a new holding priced at currentPrice. A nil currentPrice
// defaults to the purchase price; zero is a valid price.
func (s *InvestmentService) Create(ctx context.Context, userID string, i *models.Investment, currentPrice *float64) (calculator.InvestmentView, error) {
	i.CurrentPrice = i.PurchasePrice
	if currentPrice != nil {
		i.CurrentPrice = *currentPrice
	}
	if err := s.crud.create(ctx, userID, i); err != nil {
		return calculator.InvestmentView{}, err
	}
	return calculator.Value(i), nil
}

func (s *InvestmentService) Get(ctx context.Context, userID, id string) (calculator.InvestmentView, error) {
	i, err := s.crud.get(ctx, userID, id)
	if err != nil {
		return calculator.InvestmentView{}, err
	}
	return calculator.Value(i), nil
}

func (s *InvestmentService) List(ctx context.Context, userID string) ([]calculator.InvestmentView, error) {
	holdings, err := s.crud.list(ctx, userID, storage.Query{})
	if err != nil {
		return nil, err
	}
	result := make([]calculator.InvestmentView, len(holdings))
	for n, i := range holdings {
		result[n] = calculator.Value(i)
	}
	return result, nil
}

func (s *InvestmentService) Update(ctx context.Context, userID, id string, apply func(*models.Investment) error) (calculator.InvestmentView, error) {
	i, err := s.crud.update(ctx, userID, id, apply)
	if err != nil {
		return calculator.InvestmentView{}, err
	}
	return calculator.Value(i), nil
}

func (s *InvestmentService) Delete(ctx context.Context, userID, id string) error {
	return s.crud.delete(ctx, userID, id)
}

// Summary values the user's whole portfolio.
func (s *InvestmentService) Summary(ctx context.Context, userID string) (calculator.InvestmentSummary, error) {
	holdings, err := s.crud.list(ctx, userID, storage.Query{})
	if err != nil {
		return calculator.InvestmentSummary{}, err
	}
	return calculator.SummarizeInvestments(holdings), nil
}
