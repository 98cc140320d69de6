package permission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Role names a privilege level. Roles are compared only through the weight a
// [Hierarchy] assigns to them.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleDeveloper Role = "DEVELOPER"
	RoleAdmin     Role = "ADMIN"
)

// DefaultBypassRole is the lowest role that skips ownership checks.
const DefaultBypassRole = RoleDeveloper

// DefaultWeights returns the built-in role table.
func DefaultWeights() map[Role]int {
	return map[Role]int{
		RoleUser:      10,
		RoleModerator: 20,
		RoleDeveloper: 30,
		RoleAdmin:     40,
	}
}

// Hierarchy maps roles to integer weights. Higher weight means more privilege.
//
// Roles are registered during initialization; after [Hierarchy.Freeze] the
// table is read-only and safe for concurrent use.
type Hierarchy struct {
	mu      sync.RWMutex
	weights map[Role]int
	bypass  Role
	frozen  bool
}

// NewHierarchy creates an empty hierarchy with [DefaultBypassRole] as the
// bypass threshold.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		weights: make(map[Role]int),
		bypass:  DefaultBypassRole,
	}
}

// NewDefaultHierarchy returns a frozen hierarchy holding [DefaultWeights].
func NewDefaultHierarchy() *Hierarchy {
	h := NewHierarchy()
	for role, weight := range DefaultWeights() {
		_ = h.Register(role, weight)
	}
	h.Freeze()
	return h
}

// Register adds role with the given weight. Weights are unique so the order
// is strict. Must be called before [Hierarchy.Freeze].
func (h *Hierarchy) Register(role Role, weight int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frozen {
		return errors.New("role hierarchy frozen")
	}
	if strings.TrimSpace(string(role)) == "" {
		return errors.New("role name cannot be empty")
	}
	if weight <= 0 {
		return errors.New("role weight must be positive")
	}
	if _, exists := h.weights[role]; exists {
		return errors.New("role already registered")
	}
	for other, w := range h.weights {
		if w == weight {
			return fmt.Errorf("role %q has the same weight %d as %q", role, weight, other)
		}
	}

	h.weights[role] = weight
	return nil
}

// SetBypass sets the role at or above which ownership checks are skipped.
// The role must already be registered.
func (h *Hierarchy) SetBypass(role Role) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.frozen {
		return errors.New("role hierarchy frozen")
	}
	if _, ok := h.weights[role]; !ok {
		return errors.New("bypass role not registered")
	}
	h.bypass = role
	return nil
}

// Freeze prevents further changes.
func (h *Hierarchy) Freeze() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frozen = true
}

// WeightOf returns the weight of role, or false if it is not registered.
func (h *Hierarchy) WeightOf(role Role) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.weights[role]
	return w, ok
}

// Known reports whether role is registered.
func (h *Hierarchy) Known(role Role) bool {
	_, ok := h.WeightOf(role)
	return ok
}

// AtLeast reports whether a carries at least the privilege of b.
// An unregistered role on either side never satisfies the comparison.
func (h *Hierarchy) AtLeast(a, b Role) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	wa, ok := h.weights[a]
	if !ok {
		return false
	}
	wb, ok := h.weights[b]
	if !ok {
		return false
	}
	return wa >= wb
}

// Bypass returns the bypass threshold role.
func (h *Hierarchy) Bypass() Role {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bypass
}

// Bypasses reports whether role is privileged enough to skip ownership checks.
func (h *Hierarchy) Bypasses(role Role) bool {
	return h.AtLeast(role, h.Bypass())
}

// Parse resolves a role name case-insensitively against the registered roles.
func (h *Hierarchy) Parse(name string) (Role, bool) {
	name = strings.TrimSpace(name)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.weights[Role(name)]; ok {
		return Role(name), true
	}
	for role := range h.weights {
		if strings.EqualFold(string(role), name) {
			return role, true
		}
	}
	return "", false
}

// Roles returns the registered roles ordered by ascending weight, ties broken by name.
func (h *Hierarchy) Roles() []Role {
	h.mu.RLock()
	out := make([]Role, 0, len(h.weights))
	for role := range h.weights {
		out = append(out, role)
	}
	weights := h.weights
	sort.Slice(out, func(i, j int) bool {
		wi, wj := weights[out[i]], weights[out[j]]
		if wi != wj {
			return wi < wj
		}
		return out[i] < out[j]
	})
	h.mu.RUnlock()
	return out
}

// Count returns the number of registered roles.
func (h *Hierarchy) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.weights)
}
