package security

import (
	"sort"
	"time"
)

// RoleReport is one row of the role table.
type RoleReport struct {
	Role     string
	Weight   int
	Bypasses bool
}

type Report struct {
	SigningAlgorithm string
	AccessTTL        time.Duration
	IssuerPinned     bool
	AudiencePinned   bool
	KeyRotation      bool
	RefreshEnabled   bool
	GraceDays        int
	GraceWindow      time.Duration
	RefreshHeader    string
	DefaultRole      string
	BypassRole       string
	Roles            []RoleReport
	Resolvers        []string
	AuditEnabled     bool
	MetricsEnabled   bool
}

type ReportInput struct {
	SigningAlgorithm string
	AccessTTL        time.Duration
	Issuer           string
	Audience         string
	VerifyKeyCount   int
	RefreshEnabled   bool
	GraceDays        int
	RefreshHeader    string
	DefaultRole      string
	BypassRole       string
	RoleWeights      map[string]int
	Resolvers        []string
	AuditEnabled     bool
	MetricsEnabled   bool
}

func BuildReport(input ReportInput) Report {
	bypassWeight, hasBypass := input.RoleWeights[input.BypassRole]

	roles := make([]RoleReport, 0, len(input.RoleWeights))
	for role, weight := range input.RoleWeights {
		roles = append(roles, RoleReport{
			Role:     role,
			Weight:   weight,
			Bypasses: hasBypass && weight >= bypassWeight,
		})
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Weight != roles[j].Weight {
			return roles[i].Weight < roles[j].Weight
		}
		return roles[i].Role < roles[j].Role
	})

	resolvers := append([]string(nil), input.Resolvers...)
	sort.Strings(resolvers)

	var grace time.Duration
	if input.RefreshEnabled {
		// Whole-day truncation admits up to one extra day minus an instant.
		grace = time.Duration(input.GraceDays+1)*24*time.Hour - time.Nanosecond
	}

	return Report{
		SigningAlgorithm: input.SigningAlgorithm,
		AccessTTL:        input.AccessTTL,
		IssuerPinned:     input.Issuer != "",
		AudiencePinned:   input.Audience != "",
		KeyRotation:      input.VerifyKeyCount > 1,
		RefreshEnabled:   input.RefreshEnabled,
		GraceDays:        input.GraceDays,
		GraceWindow:      grace,
		RefreshHeader:    input.RefreshHeader,
		DefaultRole:      input.DefaultRole,
		BypassRole:       input.BypassRole,
		Roles:            roles,
		Resolvers:        resolvers,
		AuditEnabled:     input.AuditEnabled,
		MetricsEnabled:   input.MetricsEnabled,
	}
}
