package model

import "time"

// UserEntitlementSummary ties a user to its entitlement, resolved group
// memberships and chargeback attribution. Summaries are built once per
// analysis run and never persisted independently.
type UserEntitlementSummary struct {
	User        User         `json:"user"`
	Entitlement *Entitlement `json:"entitlement,omitempty"`

	DirectGroups []Group `json:"directGroups"`
	AllGroups    []Group `json:"allGroups"`

	EffectiveAccessLevel AccessLevel `json:"effectiveAccessLevel"`
	LicenseCost          *float64    `json:"licenseCost,omitempty"`
	ChargebackGroups     []string    `json:"chargebackGroups"`

	LastUpdated time.Time `json:"lastUpdated"`
}

// ChargebackUser is one user's line in a chargeback group rollup.
type ChargebackUser struct {
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	LicenseType string      `json:"licenseType"`
	AccessLevel AccessLevel `json:"accessLevel"`
	LicenseCost float64     `json:"licenseCost"`
}

// ChargebackGroup aggregates the users charged to one group.
type ChargebackGroup struct {
	Users      []ChargebackUser `json:"users"`
	TotalUsers int              `json:"totalUsers"`
	Licenses   map[string]int   `json:"licenses"`
	TotalCost  float64          `json:"totalCost"`
}

// OrganizationReport is the top-level aggregate produced by one analysis
// run over a single organization.
type OrganizationReport struct {
	Organization string    `json:"organization"`
	GeneratedAt  time.Time `json:"generatedAt"`

	TotalUsers        int `json:"totalUsers"`
	TotalGroups       int `json:"totalGroups"`
	TotalEntitlements int `json:"totalEntitlements"`

	UserSummaries []UserEntitlementSummary `json:"userSummaries"`

	GroupsByType   map[string]int `json:"groupsByType"`
	OrphanedGroups []Group        `json:"orphanedGroups"`

	LicensesByType   map[string]int `json:"licensesByType"`
	TotalLicenseCost *float64       `json:"totalLicenseCost,omitempty"`

	ChargebackByGroup map[string]ChargebackGroup `json:"chargebackByGroup"`
}
