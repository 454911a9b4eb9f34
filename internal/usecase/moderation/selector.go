package moderation

import (
	"math/rand/v2"
	"sync"

	"tg-roulette-bot/internal/domain"
)

// Selector выбирает цель равновероятно.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector создаёт селектор со случайным зерном.
func NewSelector() *Selector {
	return NewSeededSelector(rand.Uint64(), rand.Uint64())
}

// NewSeededSelector создаёт воспроизводимый селектор.
func NewSeededSelector(seed1, seed2 uint64) *Selector {
	return &Selector{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

// Select возвращает одного из кандидатов.
func (s *Selector) Select(candidates []domain.Candidate) (domain.Candidate, error) {
	if len(candidates) == 0 {
		return domain.Candidate{}, domain.ErrNoEligibleCandidates
	}
	s.mu.Lock()
	idx := s.rnd.IntN(len(candidates))
	s.mu.Unlock()
	return candidates[idx], nil
}
