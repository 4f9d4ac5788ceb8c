package model

// Snapshot is one organization's fetched dataset: everything the analysis
// needs, captured at a point in time.
type Snapshot struct {
	Organization string            `json:"organization"`
	Users        []User            `json:"users"`
	Groups       []Group           `json:"groups"`
	Entitlements []Entitlement     `json:"entitlements"`
	Memberships  []GroupMembership `json:"memberships"`
}
