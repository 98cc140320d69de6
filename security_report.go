package goAuthz

import (
	"github.com/MrEthical07/goAuthz/internal/security"
)

// SecurityReport summarizes the effective authorization policy of an Engine.
type SecurityReport = security.Report

// SecurityRoleReport is one row of SecurityReport.Roles.
type SecurityRoleReport = security.RoleReport

// SecurityReport returns the effective policy. It never includes key material.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	weights := make(map[string]int, e.hierarchy.Count())
	for _, role := range e.hierarchy.Roles() {
		w, _ := e.hierarchy.WeightOf(role)
		weights[string(role)] = w
	}

	kinds := e.ResolverKinds()
	resolvers := make([]string, 0, len(kinds))
	for _, k := range kinds {
		resolvers = append(resolvers, string(k))
	}

	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: e.jwtManager.Algorithm(),
		AccessTTL:        e.config.JWT.AccessTTL,
		Issuer:           e.config.JWT.Issuer,
		Audience:         e.config.JWT.Audience,
		VerifyKeyCount:   len(e.config.JWT.VerifyKeys),
		RefreshEnabled:   e.config.Refresh.Enabled,
		GraceDays:        e.config.Refresh.GraceDays,
		RefreshHeader:    e.RefreshHeader(),
		DefaultRole:      e.config.Roles.DefaultRole,
		BypassRole:       string(e.hierarchy.Bypass()),
		RoleWeights:      weights,
		Resolvers:        resolvers,
		AuditEnabled:     e.config.Audit.Enabled,
		MetricsEnabled:   e.config.Metrics.Enabled,
	})
}
