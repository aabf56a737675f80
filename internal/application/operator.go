package app

import (
	"context"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

type OperatorService struct {
	repo port.OperatorRepository
}

func NewOperatorService(repo port.OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo}
}

func (s *OperatorService) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *OperatorService) SetState(ctx context.Context, userID, chatID int64, state entity.OperatorState) (*entity.Operator, error) {
	// Get создаёт оператора, если его ещё нет
	if _, err := s.repo.Get(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, userID, state); err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, userID, chatID)
}

// BindSession привязывает оператора к сессии, в которую складываются его фото
func (s *OperatorService) BindSession(ctx context.Context, userID, chatID int64, sessionID string) (*entity.Operator, error) {
	operator, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	operator.SessionID = sessionID
	if err := s.repo.Save(ctx, operator); err != nil {
		return nil, err
	}

	return operator, nil
}

func (s *OperatorService) BeginCount(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingPhoto)
}

func (s *OperatorService) Cancel(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}
