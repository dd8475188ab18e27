package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meowstack/agentflow/internal/model"
)

// Redis is a Store backed by go-redis: every record is JSON-encoded under a
// namespaced key, and per-chain append serialization is done with a Redis
// lock (SET NX) held only for the duration of the read-modify-write.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing *redis.Client. prefix namespaces all keys
// (e.g. "agentflow:") so the store can share a Redis instance with other
// consumers.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (s *Redis) agentKey(id string) string     { return s.prefix + "agent:" + id }
func (s *Redis) executionKey(id string) string { return s.prefix + "execution:" + id }
func (s *Redis) chainKey(id string) string     { return s.prefix + "chain:" + id }
func (s *Redis) chainLockKey(id string) string { return s.prefix + "chain-lock:" + id }

func (s *Redis) LoadAgent(ctx context.Context, agentID string) (*model.Agent, error) {
	var agent model.Agent
	if err := s.loadJSON(ctx, s.agentKey(agentID), &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *Redis) SaveAgent(ctx context.Context, agent *model.Agent) error {
	return s.saveJSON(ctx, s.agentKey(agent.AgentID), agent)
}

func (s *Redis) SaveExecution(ctx context.Context, exec *model.Execution) error {
	return s.saveJSON(ctx, s.executionKey(exec.ExecutionID), exec)
}

func (s *Redis) LoadExecution(ctx context.Context, executionID string) (*model.Execution, error) {
	var exec model.Execution
	if err := s.loadJSON(ctx, s.executionKey(executionID), &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (s *Redis) UpdateExecution(ctx context.Context, executionID string, patch ExecutionPatch) error {
	var exec model.Execution
	if err := s.loadJSON(ctx, s.executionKey(executionID), &exec); err != nil {
		return err
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
		applyStepResult(&exec, *patch.StepResult)
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

	return s.saveJSON(ctx, s.executionKey(executionID), &exec)
}

// AppendMandate acquires a short-lived Redis lock on the chain, so
// concurrent appends to the same chain can't race on sequence/hash
// linkage, then read-modifies-writes the chain record.
func (s *Redis) AppendMandate(ctx context.Context, mandate *model.Mandate) error {
	unlock, err := s.lockChain(ctx, mandate.ChainID)
	if err != nil {
		return err
	}
	defer unlock()

	var chain model.MandateChain
	err = s.loadJSON(ctx, s.chainKey(mandate.ChainID), &chain)
	if err == ErrNotFound {
		chain = model.MandateChain{ChainID: mandate.ChainID}
	} else if err != nil {
		return err
	}

	chain.Mandates = append(chain.Mandates, mandate)
	return s.saveJSON(ctx, s.chainKey(mandate.ChainID), &chain)
}

func (s *Redis) MutateMandate(ctx context.Context, chainID, mandateID string, mutate func(*model.Mandate) error) error {
	unlock, err := s.lockChain(ctx, chainID)
	if err != nil {
		return err
	}
	defer unlock()

	var chain model.MandateChain
	if err := s.loadJSON(ctx, s.chainKey(chainID), &chain); err != nil {
		return err
	}

	found := false
	for _, m := range chain.Mandates {
		if m.MandateID == mandateID {
			if err := mutate(m); err != nil {
				return err
			}
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	return s.saveJSON(ctx, s.chainKey(chainID), &chain)
}

func (s *Redis) LoadChain(ctx context.Context, chainID string) (*model.MandateChain, error) {
	var chain model.MandateChain
	if err := s.loadJSON(ctx, s.chainKey(chainID), &chain); err != nil {
		return nil, err
	}
	return &chain, nil
}

// lockChain polls for a short-lived NX lock rather than blocking
// indefinitely; a lock left behind by a crashed holder expires after its
// TTL so the chain is never permanently wedged.
func (s *Redis) lockChain(ctx context.Context, chainID string) (unlock func(), err error) {
	key := s.chainLockKey(chainID)
	const ttl = 10 * time.Second

	for {
		ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring chain lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquiring chain lock for %s: %w", chainID, ctx.Err())
		case <-time.After(20 * time.Millisecond):
		}
	}
	return func() {
		s.client.Del(ctx, key)
	}, nil
}

func (s *Redis) loadJSON(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func (s *Redis) saveJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
