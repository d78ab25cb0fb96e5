package availability

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// RuleStore persists weekly availability rules.
type RuleStore interface {
	ListForVet(ctx context.Context, vetID string) ([]Rule, error)
	ReplaceForVet(ctx context.Context, vetID string, rules []Rule) ([]Rule, error)
}

// InMemoryRuleStore keeps rules in process memory.
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string][]Rule
}

func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{rules: make(map[string][]Rule)}
}

func (s *InMemoryRuleStore) ListForVet(_ context.Context, vetID string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Rule(nil), s.rules[vetID]...)
	return out, nil
}

func (s *InMemoryRuleStore) ReplaceForVet(_ context.Context, vetID string, rules []Rule) ([]Rule, error) {
	stored := make([]Rule, 0, len(rules))
	for _, r := range rules {
		r.VetID = vetID
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		stored = append(stored, r)
	}
	sortRules(stored)

	s.mu.Lock()
	s.rules[vetID] = stored
	s.mu.Unlock()
	return append([]Rule(nil), stored...), nil
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].DayOfWeek != rules[j].DayOfWeek {
			return rules[i].DayOfWeek < rules[j].DayOfWeek
		}
		return rules[i].StartTime < rules[j].StartTime
	})
}
