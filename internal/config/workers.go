package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ecrowe/quorum/pkg/models"
)

// workerFile is the on-disk shape of a worker-definition file.
type workerFile struct {
	Workers []*models.Worker `yaml:"workers"`
}

// LoadWorkers reads worker definitions from a YAML file.
// The file must define at least one worker; keys must be unique.
func LoadWorkers(path string) ([]*models.Worker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading worker definitions: %w", err)
	}

	var file workerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing worker definitions: %w", err)
	}

	if len(file.Workers) == 0 {
		return nil, fmt.Errorf("worker definition file %s defines no workers", path)
	}

	seen := make(map[string]bool)
	for i, w := range file.Workers {
		if w.Key == "" {
			return nil, fmt.Errorf("worker %d in %s has no key", i, path)
		}
		if seen[w.Key] {
			return nil, fmt.Errorf("duplicate worker key %q in %s", w.Key, path)
		}
		seen[w.Key] = true
		if !w.Role.Valid() {
			return nil, fmt.Errorf("worker %s has invalid role %q", w.Key, w.Role)
		}
		if w.Model == "" {
			return nil, fmt.Errorf("worker %s has no model", w.Key)
		}
		if w.Name == "" {
			w.Name = w.Key
		}
	}

	return file.Workers, nil
}

// DefaultWorkers returns the built-in worker set used when no definition
// file is configured. One worker per role.
func DefaultWorkers() []*models.Worker {
	return []*models.Worker{
		{
			Key:          "general",
			Name:         "General Assistant",
			Role:         models.RoleGeneral,
			Model:        "claude-sonnet-4-20250514",
			Temperature:  0.7,
			SystemPrompt: "You are a capable general-purpose assistant. Give direct, well-organized answers.",
			CostClass:    "standard",
			LatencyClass: "interactive",
		},
		{
			Key:          "researcher",
			Name:         "Research Analyst",
			Role:         models.RoleResearch,
			Model:        "claude-opus-4-20250514",
			Temperature:  0.3,
			SystemPrompt: "You are a research analyst. Gather relevant facts, weigh evidence, and cite your reasoning.",
			CostClass:    "premium",
			LatencyClass: "batch",
		},
		{
			Key:          "specialist",
			Name:         "Domain Specialist",
			Role:         models.RoleSpecialist,
			Model:        "claude-opus-4-20250514",
			Temperature:  0.4,
			SystemPrompt: "You are a domain specialist. Apply deep subject-matter expertise and flag edge cases.",
			CostClass:    "premium",
			LatencyClass: "batch",
		},
		{
			Key:          "coder",
			Name:         "Code Assistant",
			Role:         models.RoleCode,
			Model:        "claude-sonnet-4-20250514",
			Temperature:  0.2,
			SystemPrompt: "You are a software engineer. Write correct, idiomatic code and explain trade-offs briefly.",
			CostClass:    "standard",
			LatencyClass: "interactive",
		},
		{
			Key:          "writer",
			Name:         "Creative Writer",
			Role:         models.RoleCreative,
			Model:        "claude-sonnet-4-20250514",
			Temperature:  0.9,
			SystemPrompt: "You are a creative writer. Favor vivid, engaging prose over dry summary.",
			CostClass:    "standard",
			LatencyClass: "interactive",
		},
	}
}
