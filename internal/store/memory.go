package store

import (
	"context"
	"sync"

	"github.com/meowstack/agentflow/internal/model"
)

// InMemory is the reference Store: per-chain locking implemented with one
// mutex per chain id, matching the teacher's per-workflow file-lock
// granularity in spirit (exclusive per key) without the filesystem. Agent
// and execution records are guarded by the single store-wide RWMutex.
type InMemory struct {
	mu sync.RWMutex

	agents     map[string]*model.Agent
	executions map[string]*model.Execution
	chains     map[string]*model.MandateChain

	chainLocks map[string]*sync.Mutex
}

// NewInMemory creates an empty in-memory Store.
func NewInMemory() *InMemory {
	return &InMemory{
		agents:     make(map[string]*model.Agent),
		executions: make(map[string]*model.Execution),
		chains:     make(map[string]*model.MandateChain),
		chainLocks: make(map[string]*sync.Mutex),
	}
}

func (s *InMemory) LoadAgent(ctx context.Context, agentID string) (*model.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[agentID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *agent
	return &clone, nil
}

func (s *InMemory) SaveAgent(ctx context.Context, agent *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *agent
	s.agents[agent.AgentID] = &clone
	return nil
}

func (s *InMemory) SaveExecution(ctx context.Context, exec *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[exec.ExecutionID] = exec
	return nil
}

func (s *InMemory) LoadExecution(ctx context.Context, executionID string) (*model.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.executions[executionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *exec
	clone.StepResults = make([]*model.StepResult, len(exec.StepResults))
	for i, r := range exec.StepResults {
		resultCopy := *r
		clone.StepResults[i] = &resultCopy
	}
	return &clone, nil
}

func (s *InMemory) UpdateExecution(ctx context.Context, executionID string, patch ExecutionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executions[executionID]
	if !ok {
		return ErrNotFound
	}

	if patch.Status != nil {
		exec.Status = *patch.Status
	}
	if patch.EndedAt != nil {
		exec.EndedAt = patch.EndedAt
	}
	for k, v := range patch.Variables {
		if exec.Variables == nil {
			exec.Variables = make(map[string]any)
		}
		exec.Variables[k] = v
	}
	if patch.StepResult != nil {
		applyStepResult(exec, *patch.StepResult)
	}
	if patch.MandateChainID != nil {
		exec.MandateChainID = *patch.MandateChainID
	}
	if patch.FailureReason != nil {
		exec.FailureReason = patch.FailureReason
	}
	if patch.Metrics != nil {
		exec.Metrics = patch.Metrics
	}
	return nil
}

func applyStepResult(exec *model.Execution, result model.StepResult) {
	for i, existing := range exec.StepResults {
		if existing.StepID == result.StepID {
			exec.StepResults[i] = &result
			return
		}
	}
	exec.StepResults = append(exec.StepResults, &result)
}

func (s *InMemory) AppendMandate(ctx context.Context, mandate *model.Mandate) error {
	lock := s.chainLock(mandate.ChainID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	chain, ok := s.chains[mandate.ChainID]
	if !ok {
		chain = &model.MandateChain{ChainID: mandate.ChainID}
		s.chains[mandate.ChainID] = chain
	}
	s.mu.Unlock()

	chain.Mandates = append(chain.Mandates, mandate)
	return nil
}

func (s *InMemory) MutateMandate(ctx context.Context, chainID, mandateID string, mutate func(*model.Mandate) error) error {
	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	chain, ok := s.chains[chainID]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	for _, m := range chain.Mandates {
		if m.MandateID == mandateID {
			return mutate(m)
		}
	}
	return ErrNotFound
}

func (s *InMemory) LoadChain(ctx context.Context, chainID string) (*model.MandateChain, error) {
	s.mu.RLock()
	chain, ok := s.chains[chainID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return chain, nil
}

func (s *InMemory) chainLock(chainID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.chainLocks[chainID]
	if !ok {
		lock = &sync.Mutex{}
		s.chainLocks[chainID] = lock
	}
	return lock
}
