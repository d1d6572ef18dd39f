// Package models defines the core data types shared across Quorum components.
package models

// Role describes the perspective a worker contributes from.
type Role string

const (
	// RoleGeneral is a broad, balanced assistant.
	RoleGeneral Role = "general"
	// RoleCode focuses on implementation and technical detail.
	RoleCode Role = "code"
	// RoleCreative focuses on ideation and phrasing.
	RoleCreative Role = "creative"
	// RoleResearch focuses on factual grounding and analysis.
	RoleResearch Role = "research"
	// RoleSpecialist covers narrow domain expertise.
	RoleSpecialist Role = "specialist"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleGeneral, RoleCode, RoleCreative, RoleResearch, RoleSpecialist:
		return true
	default:
		return false
	}
}

// DefaultRolePriority is the order in which role sections appear in a
// synthesized response. Configurable via synthesis.role_priority.
var DefaultRolePriority = []Role{RoleGeneral, RoleResearch, RoleSpecialist, RoleCode, RoleCreative}

// Worker is a registered AI worker. Definitions are immutable after
// registration except for the availability flag.
type Worker struct {
	// Key is the unique identifier for this worker (e.g. "general").
	Key string `json:"key" yaml:"key"`
	// Name is the display name shown in contributions.
	Name string `json:"name" yaml:"name"`
	// Role is the perspective this worker contributes from.
	Role Role `json:"role" yaml:"role"`
	// Model is the provider model identifier.
	Model string `json:"model" yaml:"model"`
	// Temperature is the sampling temperature for invocations.
	Temperature float64 `json:"temperature" yaml:"temperature"`
	// SystemPrompt is the system prompt template for this worker.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	// CostClass is a coarse cost bucket (low, medium, high).
	CostClass string `json:"cost_class,omitempty" yaml:"cost_class,omitempty"`
	// LatencyClass is a coarse latency bucket (fast, medium, slow).
	LatencyClass string `json:"latency_class,omitempty" yaml:"latency_class,omitempty"`
	// Available is false when the worker has been taken out of rotation.
	Available bool `json:"available" yaml:"-"`
}
