package storage

import (
	"context"
	"sync"

	"colony-counter/internal/domain/entity"
	"colony-counter/internal/domain/port"
)

// MemoryOperatorRepository in-memory хранилище операторов бота
type MemoryOperatorRepository struct {
	mu        sync.RWMutex
	operators map[int64]*entity.Operator
}

// NewMemoryOperatorRepository создаёт новое in-memory хранилище
func NewMemoryOperatorRepository() *MemoryOperatorRepository {
	return &MemoryOperatorRepository{
		operators: make(map[int64]*entity.Operator),
	}
}

// Get возвращает оператора по ID, создаёт нового если не найден
func (r *MemoryOperatorRepository) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	r.mu.RLock()
	operator, exists := r.operators[userID]
	r.mu.RUnlock()

	if exists {
		return operator, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// другой запрос мог успеть создать оператора
	if operator, exists := r.operators[userID]; exists {
		return operator, nil
	}
	operator = entity.NewOperator(userID, chatID)
	r.operators[userID] = operator

	return operator, nil
}

// Save сохраняет состояние оператора
func (r *MemoryOperatorRepository) Save(ctx context.Context, operator *entity.Operator) error {
	r.mu.Lock()
	r.operators[operator.ID] = operator
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние оператора
func (r *MemoryOperatorRepository) UpdateState(ctx context.Context, userID int64, state entity.OperatorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if operator, exists := r.operators[userID]; exists {
		operator.SetState(state)
	}

	return nil
}

// Проверка реализации интерфейса
var _ port.OperatorRepository = (*MemoryOperatorRepository)(nil)
