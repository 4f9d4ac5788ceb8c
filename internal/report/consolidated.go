package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmdouglas/adoreport/internal/model"
)

// consolidatedUser accumulates one person's presence across organizations.
type consolidatedUser struct {
	organizations []string
	name          string
	email         string
	principalName string
	licenseNames  map[string]bool
	totalCost     float64
	chargeback    map[string]bool
	isActive      *bool
	lastAccessed  *time.Time
}

// GenerateConsolidatedUserReport merges the user summaries of several
// organization reports into one CSV. A person appearing in more than one
// organization gets a single row: organizations joined, license costs
// summed, chargeback groups unioned, and the most recent access date kept.
// Users are matched by email, falling back to principal name and then
// descriptor.
func (w *Writer) GenerateConsolidatedUserReport(reports []*model.OrganizationReport) (string, error) {
	path := w.filename("all_organizations_users", ".csv", time.Now().UTC())
	w.logger.Info("generating consolidated user report", "path", path, "organizations", len(reports))

	byKey := make(map[string]*consolidatedUser)
	var order []string

	for _, r := range reports {
		for _, s := range r.UserSummaries {
			key := s.User.MailAddress
			if key == "" {
				key = s.User.PrincipalName
			}
			if key == "" {
				key = s.User.Descriptor
			}

			entry, ok := byKey[key]
			if !ok {
				entry = &consolidatedUser{
					name:          s.User.DisplayName,
					email:         s.User.MailAddress,
					principalName: s.User.PrincipalName,
					licenseNames:  make(map[string]bool),
					chargeback:    make(map[string]bool),
					isActive:      s.User.IsActive,
				}
				byKey[key] = entry
				order = append(order, key)
			}

			entry.organizations = append(entry.organizations, r.Organization)
			entry.totalCost += costOrZero(s.LicenseCost)
			for _, g := range s.ChargebackGroups {
				entry.chargeback[g] = true
			}
			if s.Entitlement != nil {
				if s.Entitlement.LicenseDisplayName != "" {
					entry.licenseNames[s.Entitlement.LicenseDisplayName] = true
				}
				if accessed := s.Entitlement.LastAccessedDate; accessed != nil {
					if entry.lastAccessed == nil || accessed.After(*entry.lastAccessed) {
						entry.lastAccessed = accessed
					}
				}
			} else {
				entry.licenseNames["None"] = true
			}
		}
	}

	header := []string{
		"User Name", "Email", "Principal Name", "Organizations", "License Types",
		"Total License Cost", "Chargeback Groups", "Is Active", "Last Accessed",
	}

	rows := make([][]string, 0, len(order))
	for _, key := range order {
		u := byKey[key]
		rows = append(rows, []string{
			u.name,
			u.email,
			u.principalName,
			strings.Join(u.organizations, ", "),
			strings.Join(sortedSet(u.licenseNames), ", "),
			fmt.Sprintf("%.2f", u.totalCost),
			strings.Join(sortedSet(u.chargeback), "; "),
			yesNo(u.isActive),
			dateOrEmpty(u.lastAccessed),
		})
	}

	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}

	w.logger.Info("generated consolidated user report", "unique_users", len(rows))
	return path, nil
}

// GenerateConsolidatedChargebackReport writes every organization's
// chargeback rollup into one CSV, one row per organization and group.
func (w *Writer) GenerateConsolidatedChargebackReport(reports []*model.OrganizationReport) (string, error) {
	path := w.filename("all_organizations_chargeback", ".csv", time.Now().UTC())
	w.logger.Info("generating consolidated chargeback report", "path", path, "organizations", len(reports))

	header := []string{
		"Organization", "Group Name", "Total Users", "Basic Licenses",
		"Stakeholder Licenses", "VS Subscriber Licenses", "VS Enterprise Licenses",
		"Total Cost", "Cost Per User",
	}

	var rows [][]string
	for _, r := range reports {
		for _, name := range sortedKeys(r.ChargebackByGroup) {
			rows = append(rows, chargebackRow(r.Organization, name, r.ChargebackByGroup[name], false))
		}
	}

	if err := writeCSV(path, header, rows); err != nil {
		return "", err
	}

	w.logger.Info("generated consolidated chargeback report", "entries", len(rows))
	return path, nil
}

func sortedSet(set map[string]bool) []string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}
