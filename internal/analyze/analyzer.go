package analyze

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmdouglas/adoreport/internal/model"
)

// Options controls ingestion-time filtering. Both exclusions default to on;
// tests and ad-hoc analysis can disable them to see the full identity set.
type Options struct {
	ExcludeBuiltInUsers  bool
	ExcludeBuiltInGroups bool
}

// DefaultOptions returns the standard filtering configuration.
func DefaultOptions() Options {
	return Options{ExcludeBuiltInUsers: true, ExcludeBuiltInGroups: true}
}

// Analyzer cross-references one organization's snapshot of users, groups,
// entitlements and membership edges. All state belongs to a single run;
// the analyzer is not safe for concurrent use.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	users        map[string]*model.User
	groups       map[string]*model.Group
	entitlements map[string]*model.Entitlement
	graph        *MembershipGraph

	summaries []model.UserEntitlementSummary
	loaded    bool
	processed bool
}

// New returns an Analyzer with the given filtering options. A nil logger
// falls back to slog's default.
func New(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source, for tests.
func (a *Analyzer) WithClock(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// SetData ingests the fetched snapshot, applying the configured built-in
// filters. Entitlements are keyed by user descriptor: a later record for
// the same user replaces the earlier one.
func (a *Analyzer) SetData(users []model.User, groups []model.Group, entitlements []model.Entitlement, memberships []model.GroupMembership) {
	a.users = make(map[string]*model.User, len(users))
	skippedUsers := 0
	for i := range users {
		u := &users[i]
		if a.opts.ExcludeBuiltInUsers && u.IsBuiltIn() {
			skippedUsers++
			a.logger.Debug("skipping built-in user", "user", u.DisplayName)
			continue
		}
		a.users[u.Descriptor] = u
	}

	a.groups = make(map[string]*model.Group, len(groups))
	skippedGroups := 0
	for i := range groups {
		g := &groups[i]
		if a.opts.ExcludeBuiltInGroups && g.IsBuiltIn() {
			skippedGroups++
			a.logger.Debug("skipping built-in group", "group", g.DisplayName)
			continue
		}
		a.groups[g.Descriptor] = g
	}

	a.entitlements = make(map[string]*model.Entitlement, len(entitlements))
	for i := range entitlements {
		e := &entitlements[i]
		a.entitlements[e.UserDescriptor] = e
	}

	a.graph = NewMembershipGraph(memberships)
	a.loaded = true
	a.processed = false
	a.summaries = nil

	a.logger.Info("snapshot ingested",
		"users", len(a.users),
		"skipped_users", skippedUsers,
		"groups", len(a.groups),
		"skipped_groups", skippedGroups,
		"entitlements", len(a.entitlements),
		"memberships", len(memberships))
}

// Users returns the ingested user set after filtering.
func (a *Analyzer) Users() map[string]*model.User { return a.users }

// Summaries returns the summaries built by ProcessUsers.
func (a *Analyzer) Summaries() []model.UserEntitlementSummary { return a.summaries }

// Summarize builds the entitlement summary for one user: entitlement
// lookup, direct and transitive group resolution, effective access level,
// chargeback groups and license cost. Missing cross-references (no
// entitlement, edges to unknown groups) are legitimate no-data states, not
// errors.
func (a *Analyzer) Summarize(user *model.User) (model.UserEntitlementSummary, error) {
	if user == nil {
		return model.UserEntitlementSummary{}, fmt.Errorf("summarize: user is nil")
	}

	entitlement := a.entitlements[user.Descriptor]

	directGroups := a.resolveGroups(a.graph.DirectGroups(user.Descriptor))

	closure := a.graph.Closure(user.Descriptor)
	allDescriptors := make([]string, 0, len(closure))
	for desc := range closure {
		allDescriptors = append(allDescriptors, desc)
	}
	sort.Strings(allDescriptors)
	allGroups := a.resolveGroups(allDescriptors)

	// Group membership alone never grants access here: with no entitlement
	// the effective level is none.
	effective := model.AccessLevelNone
	if entitlement != nil {
		effective = entitlement.AccessLevel
	}

	return model.UserEntitlementSummary{
		User:                 *user,
		Entitlement:          entitlement,
		DirectGroups:         directGroups,
		AllGroups:            allGroups,
		EffectiveAccessLevel: effective,
		LicenseCost:          model.EntitlementCost(entitlement),
		ChargebackGroups:     a.chargebackGroups(directGroups),
		LastUpdated:          a.now().UTC(),
	}, nil
}

// resolveGroups maps descriptors to groups, silently dropping dangling
// references to groups absent from the group table.
func (a *Analyzer) resolveGroups(descriptors []string) []model.Group {
	groups := make([]model.Group, 0, len(descriptors))
	for _, desc := range descriptors {
		if g, ok := a.groups[desc]; ok {
			groups = append(groups, *g)
		}
	}
	return groups
}

// chargebackGroups selects the directly held groups eligible for cost
// allocation: externally sourced directory groups or security groups,
// never platform built-ins.
func (a *Analyzer) chargebackGroups(direct []model.Group) []string {
	names := make([]string, 0, len(direct))
	for _, g := range direct {
		if g.IsBuiltIn() {
			continue
		}
		switch {
		case g.GroupType == model.GroupTypeAzureAD || g.GroupType == model.GroupTypeWindows:
			names = append(names, g.DisplayName)
		case g.IsSecurityGroup:
			names = append(names, g.DisplayName)
		}
	}
	return names
}

// ProcessUsers builds a summary for every ingested user. A failure while
// summarizing one user is logged and that user omitted; it never aborts
// the run.
func (a *Analyzer) ProcessUsers() error {
	if !a.loaded {
		return fmt.Errorf("analyze: no data ingested")
	}

	descriptors := make([]string, 0, len(a.users))
	for desc := range a.users {
		descriptors = append(descriptors, desc)
	}
	sort.Strings(descriptors)

	a.summaries = make([]model.UserEntitlementSummary, 0, len(descriptors))
	for _, desc := range descriptors {
		summary, err := a.Summarize(a.users[desc])
		if err != nil {
			a.logger.Warn("failed to summarize user", "descriptor", desc, "error", err)
			continue
		}
		a.summaries = append(a.summaries, summary)
	}

	a.processed = true
	a.logger.Info("user summaries built", "count", len(a.summaries))
	return nil
}

// Report aggregates the summaries into the organization report. Calling it
// before any ingestion is a contract violation and returns an error; all
// data-level gaps degrade to empty sets or nil fields instead.
func (a *Analyzer) Report(organization string) (*model.OrganizationReport, error) {
	if !a.loaded {
		return nil, fmt.Errorf("analyze: report requested before ingestion")
	}
	if !a.processed {
		if err := a.ProcessUsers(); err != nil {
			return nil, err
		}
	}

	groupsByType := make(map[string]int)
	var orphaned []model.Group
	for _, g := range a.groups {
		groupsByType[string(g.GroupType)]++
		if g.MemberCount == 0 {
			orphaned = append(orphaned, *g)
		}
	}
	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i].Descriptor < orphaned[j].Descriptor })

	// License histogram keys prefer the human display name over the
	// internal classification key.
	licensesByType := make(map[string]int)
	for _, e := range a.entitlements {
		key := e.LicenseDisplayName
		if key == "" {
			key = string(e.AccessLevel)
		}
		if key == "" {
			key = "Unknown"
		}
		licensesByType[key]++
	}

	var total float64
	for _, s := range a.summaries {
		if s.LicenseCost != nil {
			total += *s.LicenseCost
		}
	}
	var totalCost *float64
	if total > 0 {
		totalCost = &total
	}

	report := &model.OrganizationReport{
		Organization:      organization,
		GeneratedAt:       a.now().UTC(),
		TotalUsers:        len(a.users),
		TotalGroups:       len(a.groups),
		TotalEntitlements: len(a.entitlements),
		UserSummaries:     a.summaries,
		GroupsByType:      groupsByType,
		OrphanedGroups:    orphaned,
		LicensesByType:    licensesByType,
		TotalLicenseCost:  totalCost,
		ChargebackByGroup: a.chargebackAnalysis(),
	}

	a.logger.Info("organization report generated", "organization", organization)
	return report, nil
}

// chargebackAnalysis fans every summary out into each of its chargeback
// groups, accumulating the user list, per-license counts and total cost.
func (a *Analyzer) chargebackAnalysis() map[string]model.ChargebackGroup {
	analysis := make(map[string]model.ChargebackGroup)

	for _, s := range a.summaries {
		licenseType := "Unknown"
		if s.Entitlement != nil && s.Entitlement.LicenseDisplayName != "" {
			licenseType = s.Entitlement.LicenseDisplayName
		} else if s.EffectiveAccessLevel != "" {
			licenseType = string(s.EffectiveAccessLevel)
		}

		var cost float64
		if s.LicenseCost != nil {
			cost = *s.LicenseCost
		}

		for _, groupName := range s.ChargebackGroups {
			entry, ok := analysis[groupName]
			if !ok {
				entry = model.ChargebackGroup{Licenses: make(map[string]int)}
			}

			entry.Users = append(entry.Users, model.ChargebackUser{
				Name:        s.User.DisplayName,
				Email:       s.User.MailAddress,
				LicenseType: licenseType,
				AccessLevel: s.EffectiveAccessLevel,
				LicenseCost: cost,
			})
			entry.TotalUsers++
			entry.Licenses[licenseType]++
			entry.TotalCost += cost

			analysis[groupName] = entry
		}
	}

	return analysis
}
