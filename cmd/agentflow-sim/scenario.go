package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Response is one canned reply in a route's scripted sequence.
type Response struct {
	StatusCode int            `yaml:"status_code"`
	Body       map[string]any `yaml:"body,omitempty"`
	DelayMS    int            `yaml:"delay_ms,omitempty"`
}

// Scenario maps a request path to the ordered sequence of responses it
// plays back. The last response in a sequence repeats for any request past
// the end of the script, so a scenario can script "fail twice then
// succeed forever" for retry/backoff tests.
type Scenario struct {
	Routes map[string][]Response `yaml:"routes"`
}

// loadScenario reads a YAML scenario file describing the simulated
// collaborator's scripted behavior, the same shape a test author would
// hand-write to reproduce a flaky or slow downstream dependency.
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	if len(sc.Routes) == 0 {
		return nil, fmt.Errorf("scenario defines no routes")
	}
	return &sc, nil
}

// next returns the response to play for the i-th request against path,
// clamping to the final scripted response once the script is exhausted.
func (s *Scenario) next(path string, i int) (Response, bool) {
	route, ok := s.Routes[path]
	if !ok || len(route) == 0 {
		return Response{}, false
	}
	if i >= len(route) {
		i = len(route) - 1
	}
	return route[i], true
}
