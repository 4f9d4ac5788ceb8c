// Package model defines the Azure DevOps entities and derived report
// structures used by the entitlement analysis.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SubjectKind identifies the kind of graph subject behind a descriptor.
type SubjectKind string

const (
	SubjectKindUser             SubjectKind = "user"
	SubjectKindGroup            SubjectKind = "group"
	SubjectKindServicePrincipal SubjectKind = "servicePrincipal"
)

// ParseSubjectKind maps a raw API subjectKind string to a SubjectKind.
// Unknown values default to user, matching how the membership API reports
// plain members.
func ParseSubjectKind(s string) SubjectKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "group":
		return SubjectKindGroup
	case "serviceprincipal":
		return SubjectKindServicePrincipal
	default:
		return SubjectKindUser
	}
}

// GroupType classifies the identity provider a group originates from.
type GroupType string

const (
	GroupTypeWindows          GroupType = "windows"
	GroupTypeAzureAD          GroupType = "azureActiveDirectory"
	GroupTypeServicePrincipal GroupType = "servicePrincipal"
	GroupTypeUnknown          GroupType = "unknown"
)

// GroupTypeFromOrigin derives a GroupType from the free-text origin string
// the graph API returns. The matching is deliberately isolated here so the
// sniffing rules live in exactly one place.
func GroupTypeFromOrigin(origin string) GroupType {
	o := strings.ToLower(origin)
	switch {
	case strings.Contains(o, "windows"):
		return GroupTypeWindows
	case strings.Contains(o, "aad"), strings.Contains(o, "azuread"):
		return GroupTypeAzureAD
	case strings.Contains(o, "serviceprincipal"):
		return GroupTypeServicePrincipal
	default:
		return GroupTypeUnknown
	}
}

// OriginBuiltIn is the origin tag Azure DevOps stamps on identities and
// groups it creates itself. Built-in subjects are excluded from chargeback.
const OriginBuiltIn = "vsts"

// Metadata is the open key/value bag of extra fields the API returned
// alongside the strongly typed ones.
type Metadata map[string]any

// User is an Azure DevOps user identity.
type User struct {
	Descriptor    string      `json:"descriptor"`
	DisplayName   string      `json:"displayName"`
	UniqueName    string      `json:"uniqueName,omitempty"`
	PrincipalName string      `json:"principalName,omitempty"`
	MailAddress   string      `json:"mailAddress,omitempty"`
	SubjectKind   SubjectKind `json:"subjectKind"`
	Domain        string      `json:"domain,omitempty"`
	Origin        string      `json:"origin,omitempty"`
	OriginID      string      `json:"originId,omitempty"`
	IsActive      *bool       `json:"isActive,omitempty"`
	Metadata      Metadata    `json:"metadata,omitempty"`
}

// Validate reports whether the user satisfies the construction invariants:
// a descriptor and a non-blank display name.
func (u *User) Validate() error {
	if u.Descriptor == "" {
		return fmt.Errorf("user: descriptor is required")
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return fmt.Errorf("user %s: display name cannot be blank", u.Descriptor)
	}
	return nil
}

// ServiceAccountPrefix marks descriptors reserved for service accounts.
const ServiceAccountPrefix = "svc."

// serviceAccountPatterns are display-name fragments of identities Azure
// DevOps provisions for its own pipelines and agents.
var serviceAccountPatterns = []string{
	"project collection",
	"build service",
	"release management",
	"agent pool service",
	"deployment group service",
	"azure devops",
	"visualstudio.com",
}

// IsBuiltIn reports whether the user is a platform built-in account or a
// service identity: origin tagged vsts, a service-account descriptor
// prefix, or a display name matching a known service-account pattern.
func (u *User) IsBuiltIn() bool {
	if strings.EqualFold(u.Origin, OriginBuiltIn) {
		return true
	}
	if strings.HasPrefix(u.Descriptor, ServiceAccountPrefix) {
		return true
	}
	name := strings.ToLower(u.DisplayName)
	for _, pattern := range serviceAccountPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// Group is an Azure DevOps group. MemberCount and Members are populated
// after the membership fetch, not at construction.
type Group struct {
	Descriptor      string      `json:"descriptor"`
	DisplayName     string      `json:"displayName"`
	PrincipalName   string      `json:"principalName,omitempty"`
	MailAddress     string      `json:"mailAddress,omitempty"`
	SubjectKind     SubjectKind `json:"subjectKind"`
	GroupType       GroupType   `json:"groupType"`
	Domain          string      `json:"domain,omitempty"`
	Origin          string      `json:"origin,omitempty"`
	OriginID        string      `json:"originId,omitempty"`
	SecurityID      string      `json:"securityId,omitempty"`
	IsSecurityGroup bool        `json:"isSecurityGroup"`
	IsActive        *bool       `json:"isActive,omitempty"`
	MemberCount     int         `json:"memberCount"`
	Members         []string    `json:"members,omitempty"`
	Metadata        Metadata    `json:"metadata,omitempty"`
}

// Validate reports whether the group satisfies the construction invariants.
func (g *Group) Validate() error {
	if g.Descriptor == "" {
		return fmt.Errorf("group: descriptor is required")
	}
	if strings.TrimSpace(g.DisplayName) == "" {
		return fmt.Errorf("group %s: display name cannot be blank", g.Descriptor)
	}
	return nil
}

// IsBuiltIn reports whether the group was auto-created by Azure DevOps.
func (g *Group) IsBuiltIn() bool {
	return strings.EqualFold(g.Origin, OriginBuiltIn)
}

// Entitlement is a user's license entitlement. The three raw license fields
// are kept alongside the derived AccessLevel so reports can show both.
type Entitlement struct {
	UserDescriptor     string          `json:"userDescriptor"`
	AccessLevel        AccessLevel     `json:"accessLevel"`
	LicenseDisplayName string          `json:"licenseDisplayName,omitempty"`
	AccountLicenseType string          `json:"accountLicenseType,omitempty"`
	LicensingSource    LicensingSource `json:"licensingSource"`
	MsdnLicenseType    MsdnLicenseType `json:"msdnLicenseType"`
	AssignmentSource   string          `json:"assignmentSource,omitempty"`
	DateCreated        *time.Time      `json:"dateCreated,omitempty"`
	LastAccessedDate   *time.Time      `json:"lastAccessedDate,omitempty"`

	// Informational only; not used in resolution.
	ProjectEntitlements []string `json:"projectEntitlements,omitempty"`
	GroupAssignments    []string `json:"groupAssignments,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`
}

// Validate reports whether the entitlement satisfies the construction
// invariants.
func (e *Entitlement) Validate() error {
	if e.UserDescriptor == "" {
		return fmt.Errorf("entitlement: user descriptor is required")
	}
	return nil
}

// GroupMembership is a directed edge from a container group to one of its
// members. The member may itself be a group, which makes the membership
// structure a general directed graph.
type GroupMembership struct {
	GroupDescriptor  string      `json:"groupDescriptor"`
	MemberDescriptor string      `json:"memberDescriptor"`
	MemberType       SubjectKind `json:"memberType"`
	IsActive         *bool       `json:"isActive,omitempty"`
	Metadata         Metadata    `json:"metadata,omitempty"`
}

// Validate reports whether the membership edge has both endpoints.
func (m *GroupMembership) Validate() error {
	if m.GroupDescriptor == "" || m.MemberDescriptor == "" {
		return fmt.Errorf("membership: group and member descriptors are required")
	}
	return nil
}
