package model

// Agent is the tenant-owned entity a workflow's executions run under. The
// orchestrator only touches its aggregate metrics; identity, ownership,
// and everything else about an agent belongs to the external Store and the
// out-of-scope HTTP/auth surface named in spec.md §1.
type Agent struct {
	AgentID  string           `json:"agentId"`
	TenantID string           `json:"tenantId"`
	Metrics  ExecutionMetrics `json:"metrics"`
}

// AddExecutionMetrics folds one execution's final metrics into the
// agent's running aggregate.
func (a *Agent) AddExecutionMetrics(m ExecutionMetrics) {
	a.Metrics.TotalSteps += m.TotalSteps
	a.Metrics.CompletedSteps += m.CompletedSteps
	a.Metrics.FailedSteps += m.FailedSteps
	a.Metrics.DurationMS += m.DurationMS
	a.Metrics.CostAccumulated += m.CostAccumulated
}
