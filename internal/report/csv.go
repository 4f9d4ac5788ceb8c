package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/cmdouglas/adoreport/internal/model"
)

// GenerateCSVReports writes the four per-organization CSV artifacts: user
// summary, chargeback, group analysis and license summary.
func (w *Writer) GenerateCSVReports(r *model.OrganizationReport) ([]string, error) {
	type job struct {
		base  string
		write func(*model.OrganizationReport, string) error
	}
	jobs := []job{
		{r.Organization + "_user_summary", w.writeUserSummaryCSV},
		{r.Organization + "_chargeback", w.writeChargebackCSV},
		{r.Organization + "_group_analysis", w.writeGroupAnalysisCSV},
		{r.Organization + "_license_summary", w.writeLicenseSummaryCSV},
	}

	paths := make([]string, 0, len(jobs))
	for _, j := range jobs {
		path := w.filename(j.base, ".csv", r.GeneratedAt)
		if err := j.write(r, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	w.logger.Info("generated CSV reports", "count", len(paths), "organization", r.Organization)
	return paths, nil
}

// writeCSV writes a header plus rows to path.
func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeUserSummaryCSV(r *model.OrganizationReport, path string) error {
	w.logger.Debug("generating user summary CSV", "path", path)

	header := []string{
		"Organization", "User Name", "Email", "Principal Name", "Unique Name",
		"Origin ID", "Descriptor", "Origin", "Domain", "Access Level",
		"License Display Name", "Is Active", "Direct Groups", "All Groups",
		"Chargeback Groups", "License Cost", "Last Accessed",
	}

	rows := make([][]string, 0, len(r.UserSummaries))
	for _, s := range r.UserSummaries {
		license, lastAccessed := "", ""
		if s.Entitlement != nil {
			license = s.Entitlement.LicenseDisplayName
			lastAccessed = dateOrEmpty(s.Entitlement.LastAccessedDate)
		}
		rows = append(rows, []string{
			r.Organization,
			s.User.DisplayName,
			s.User.MailAddress,
			s.User.PrincipalName,
			s.User.UniqueName,
			s.User.OriginID,
			s.User.Descriptor,
			s.User.Origin,
			s.User.Domain,
			string(s.EffectiveAccessLevel),
			license,
			yesNo(s.User.IsActive),
			joinSemicolon(groupNames(s.DirectGroups)),
			joinSemicolon(groupNames(s.AllGroups)),
			joinSemicolon(s.ChargebackGroups),
			fmt.Sprintf("%.2f", costOrZero(s.LicenseCost)),
			lastAccessed,
		})
	}

	return writeCSV(path, header, rows)
}

func (w *Writer) writeChargebackCSV(r *model.OrganizationReport, path string) error {
	w.logger.Debug("generating chargeback CSV", "path", path)

	header := []string{
		"Organization", "Group Name", "Total Users", "Basic Licenses",
		"Stakeholder Licenses", "VS Subscriber Licenses", "VS Enterprise Licenses",
		"Other Licenses", "Total Cost", "Cost Per User",
	}

	var rows [][]string
	for _, name := range sortedKeys(r.ChargebackByGroup) {
		rows = append(rows, chargebackRow(r.Organization, name, r.ChargebackByGroup[name], true))
	}

	return writeCSV(path, header, rows)
}

// chargebackRow renders one chargeback group. License counts are looked up
// under both the display name and the internal level key, since the
// histogram prefers display names when the API supplies them.
func chargebackRow(organization, name string, g model.ChargebackGroup, includeOther bool) []string {
	basic := g.Licenses["Basic"] + g.Licenses[string(model.AccessLevelBasic)]
	stakeholder := g.Licenses["Stakeholder"] + g.Licenses[string(model.AccessLevelStakeholder)]
	vsSubscriber := g.Licenses["Visual Studio Subscriber"] + g.Licenses[string(model.AccessLevelVSSubscriber)]
	vsEnterprise := g.Licenses["Visual Studio Enterprise"] + g.Licenses[string(model.AccessLevelVSEnterprise)]

	costPerUser := 0.0
	if g.TotalUsers > 0 {
		costPerUser = g.TotalCost / float64(g.TotalUsers)
	}

	row := []string{
		organization,
		name,
		fmt.Sprintf("%d", g.TotalUsers),
		fmt.Sprintf("%d", basic),
		fmt.Sprintf("%d", stakeholder),
		fmt.Sprintf("%d", vsSubscriber),
		fmt.Sprintf("%d", vsEnterprise),
	}
	if includeOther {
		other := g.TotalUsers - (basic + stakeholder + vsSubscriber + vsEnterprise)
		if other < 0 {
			other = 0
		}
		row = append(row, fmt.Sprintf("%d", other))
	}
	return append(row,
		fmt.Sprintf("%.2f", g.TotalCost),
		fmt.Sprintf("%.2f", costPerUser),
	)
}

func (w *Writer) writeGroupAnalysisCSV(r *model.OrganizationReport, path string) error {
	w.logger.Debug("generating group analysis CSV", "path", path)

	header := []string{
		"Organization", "Group Name", "Group Type", "Member Count",
		"Is Security Group", "Domain", "Origin", "Is Orphaned", "Principal Name",
	}

	groups, orphaned := collectReportGroups(r)

	var rows [][]string
	for _, desc := range sortedKeys(groups) {
		g := groups[desc]
		isSecurity := g.IsSecurityGroup
		rows = append(rows, []string{
			r.Organization,
			g.DisplayName,
			string(g.GroupType),
			fmt.Sprintf("%d", g.MemberCount),
			yesNo(&isSecurity),
			g.Domain,
			g.Origin,
			yesNo(boolPtr(orphaned[desc])),
			g.PrincipalName,
		})
	}

	return writeCSV(path, header, rows)
}

// collectReportGroups gathers every non-built-in group referenced by the
// report, from both the user summaries and the orphaned set, and marks
// which of them are orphaned.
func collectReportGroups(r *model.OrganizationReport) (map[string]model.Group, map[string]bool) {
	groups := make(map[string]model.Group)
	for _, s := range r.UserSummaries {
		for _, g := range s.AllGroups {
			if g.IsBuiltIn() {
				continue
			}
			groups[g.Descriptor] = g
		}
	}

	orphaned := make(map[string]bool)
	for _, g := range r.OrphanedGroups {
		if g.IsBuiltIn() {
			continue
		}
		groups[g.Descriptor] = g
		orphaned[g.Descriptor] = true
	}
	return groups, orphaned
}

func (w *Writer) writeLicenseSummaryCSV(r *model.OrganizationReport, path string) error {
	w.logger.Debug("generating license summary CSV", "path", path)

	header := []string{"License Type", "Count", "Percentage"}

	total := 0
	for _, count := range r.LicensesByType {
		total += count
	}

	var rows [][]string
	for _, licenseType := range sortedKeys(r.LicensesByType) {
		count := r.LicensesByType[licenseType]
		percentage := 0.0
		if total > 0 {
			percentage = float64(count) / float64(total) * 100
		}
		rows = append(rows, []string{
			titleize(licenseType),
			fmt.Sprintf("%d", count),
			fmt.Sprintf("%.1f%%", percentage),
		})
	}
	rows = append(rows, []string{"TOTAL", fmt.Sprintf("%d", total), "100.0%"})

	return writeCSV(path, header, rows)
}

func boolPtr(b bool) *bool { return &b }

func joinSemicolon(items []string) string { return strings.Join(items, "; ") }
