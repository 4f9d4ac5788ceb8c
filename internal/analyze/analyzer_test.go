package analyze

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmdouglas/adoreport/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser(descriptor, name string) model.User {
	return model.User{
		Descriptor:  descriptor,
		DisplayName: name,
		SubjectKind: model.SubjectKindUser,
		Origin:      "aad",
		MailAddress: name + "@example.com",
	}
}

func aadGroup(descriptor, name string) model.Group {
	return model.Group{
		Descriptor:  descriptor,
		DisplayName: name,
		SubjectKind: model.SubjectKindGroup,
		GroupType:   model.GroupTypeAzureAD,
		Origin:      "aad",
		MemberCount: 1,
	}
}

func basicEntitlement(userDescriptor string) model.Entitlement {
	return model.Entitlement{
		UserDescriptor:     userDescriptor,
		AccessLevel:        model.AccessLevelBasic,
		LicenseDisplayName: "Basic",
	}
}

func TestSummarize_WithEntitlementAndGroups(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())

	users := []model.User{testUser("u1", "Jamie")}
	groups := []model.Group{
		aadGroup("g1", "Engineering"),
		aadGroup("g2", "All Staff"),
	}
	memberships := []model.GroupMembership{
		{GroupDescriptor: "g1", MemberDescriptor: "u1"},
		{GroupDescriptor: "g2", MemberDescriptor: "g1"},
	}
	a.SetData(users, groups, []model.Entitlement{basicEntitlement("u1")}, memberships)

	s, err := a.Summarize(a.Users()["u1"])
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if s.EffectiveAccessLevel != model.AccessLevelBasic {
		t.Errorf("effective access level = %q, want basic", s.EffectiveAccessLevel)
	}
	if s.LicenseCost == nil || *s.LicenseCost != 6.00 {
		t.Errorf("license cost = %v, want 6.00", s.LicenseCost)
	}
	if len(s.DirectGroups) != 1 || s.DirectGroups[0].Descriptor != "g1" {
		t.Errorf("direct groups = %v, want [g1]", s.DirectGroups)
	}
	if len(s.AllGroups) != 2 {
		t.Errorf("all groups = %v, want g1 and g2", s.AllGroups)
	}
}

func TestSummarize_NoEntitlement(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())
	a.SetData([]model.User{testUser("u1", "Jamie")}, nil, nil, nil)

	s, err := a.Summarize(a.Users()["u1"])
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if s.Entitlement != nil {
		t.Error("expected nil entitlement")
	}
	if s.EffectiveAccessLevel != model.AccessLevelNone {
		t.Errorf("effective access level = %q, want none", s.EffectiveAccessLevel)
	}
	if s.LicenseCost != nil {
		t.Errorf("license cost = %v, want nil for missing entitlement", *s.LicenseCost)
	}
}

func TestSummarize_DanglingGroupReferenceDropped(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())
	memberships := []model.GroupMembership{
		{GroupDescriptor: "g-gone", MemberDescriptor: "u1"},
	}
	a.SetData([]model.User{testUser("u1", "Jamie")}, nil, nil, memberships)

	s, err := a.Summarize(a.Users()["u1"])
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(s.DirectGroups) != 0 {
		t.Errorf("direct groups = %v, want empty for dangling reference", s.DirectGroups)
	}
}

func TestChargebackGroups_DirectEligibleOnly(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())

	aad := aadGroup("g-aad", "Engineering")
	win := aadGroup("g-win", "Legacy Team")
	win.GroupType = model.GroupTypeWindows
	win.Origin = "windows"
	security := aadGroup("g-sec", "Sec Group")
	security.GroupType = model.GroupTypeUnknown
	security.Origin = "custom"
	security.IsSecurityGroup = true
	plain := aadGroup("g-plain", "Plain Group")
	plain.GroupType = model.GroupTypeUnknown
	plain.Origin = "custom"
	nested := aadGroup("g-nested", "Parent Org")

	groups := []model.Group{aad, win, security, plain, nested}
	memberships := []model.GroupMembership{
		{GroupDescriptor: "g-aad", MemberDescriptor: "u1"},
		{GroupDescriptor: "g-win", MemberDescriptor: "u1"},
		{GroupDescriptor: "g-sec", MemberDescriptor: "u1"},
		{GroupDescriptor: "g-plain", MemberDescriptor: "u1"},
		// nested is reachable only transitively and must not be charged.
		{GroupDescriptor: "g-nested", MemberDescriptor: "g-aad"},
	}
	a.SetData([]model.User{testUser("u1", "Jamie")}, groups, nil, memberships)

	s, err := a.Summarize(a.Users()["u1"])
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	want := map[string]bool{"Engineering": true, "Legacy Team": true, "Sec Group": true}
	if len(s.ChargebackGroups) != len(want) {
		t.Fatalf("chargeback groups = %v, want %v", s.ChargebackGroups, want)
	}
	for _, name := range s.ChargebackGroups {
		if !want[name] {
			t.Errorf("unexpected chargeback group %q", name)
		}
	}
}

func TestChargebackGroups_BuiltInExcluded(t *testing.T) {
	t.Parallel()
	a := New(Options{}, discardLogger())

	builtin := aadGroup("g-vsts", "Project Administrators")
	builtin.Origin = "vsts"
	builtin.IsSecurityGroup = true

	memberships := []model.GroupMembership{
		{GroupDescriptor: "g-vsts", MemberDescriptor: "u1"},
	}
	a.SetData([]model.User{testUser("u1", "Jamie")}, []model.Group{builtin}, nil, memberships)

	s, err := a.Summarize(a.Users()["u1"])
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(s.ChargebackGroups) != 0 {
		t.Errorf("chargeback groups = %v, want none for vsts built-in", s.ChargebackGroups)
	}
}

func TestSetData_BuiltInUserFilterToggle(t *testing.T) {
	t.Parallel()
	users := []model.User{
		testUser("u1", "Jamie"),
		{Descriptor: "svc.abc", DisplayName: "Build Service", SubjectKind: model.SubjectKindUser, Origin: "vsts"},
	}

	filtered := New(Options{ExcludeBuiltInUsers: true}, discardLogger())
	filtered.SetData(users, nil, nil, nil)
	if got := len(filtered.Users()); got != 1 {
		t.Errorf("with filtering: %d users, want 1", got)
	}

	unfiltered := New(Options{ExcludeBuiltInUsers: false}, discardLogger())
	unfiltered.SetData(users, nil, nil, nil)
	if got := len(unfiltered.Users()); got != 2 {
		t.Errorf("without filtering: %d users, want 2", got)
	}
}

func TestReport_BeforeIngestionFails(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())
	if _, err := a.Report("contoso"); err == nil {
		t.Fatal("expected error for report before ingestion")
	}
}

func TestReport_Aggregates(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	a.WithClock(func() time.Time { return fixed })

	users := []model.User{
		testUser("u1", "Jamie"),
		testUser("u2", "Robin"),
		testUser("u3", "Alex"),
	}
	engineering := aadGroup("g1", "Engineering")
	engineering.MemberCount = 3
	orphan := aadGroup("g-empty", "Empty Group")
	orphan.MemberCount = 0
	groups := []model.Group{engineering, orphan}

	stakeholder := model.Entitlement{
		UserDescriptor:     "u3",
		AccessLevel:        model.AccessLevelStakeholder,
		LicenseDisplayName: "Stakeholder",
	}
	entitlements := []model.Entitlement{
		basicEntitlement("u1"),
		basicEntitlement("u2"),
		stakeholder,
	}
	memberships := []model.GroupMembership{
		{GroupDescriptor: "g1", MemberDescriptor: "u1"},
		{GroupDescriptor: "g1", MemberDescriptor: "u2"},
		{GroupDescriptor: "g1", MemberDescriptor: "u3"},
	}
	a.SetData(users, groups, entitlements, memberships)

	rep, err := a.Report("contoso")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	if rep.Organization != "contoso" {
		t.Errorf("organization = %q, want contoso", rep.Organization)
	}
	if !rep.GeneratedAt.Equal(fixed) {
		t.Errorf("generated at = %v, want %v", rep.GeneratedAt, fixed)
	}
	if rep.TotalUsers != 3 || rep.TotalGroups != 2 || rep.TotalEntitlements != 3 {
		t.Errorf("counts = %d/%d/%d, want 3/2/3", rep.TotalUsers, rep.TotalGroups, rep.TotalEntitlements)
	}

	if len(rep.OrphanedGroups) != 1 || rep.OrphanedGroups[0].Descriptor != "g-empty" {
		t.Errorf("orphaned groups = %v, want [g-empty]", rep.OrphanedGroups)
	}

	if rep.LicensesByType["Basic"] != 2 || rep.LicensesByType["Stakeholder"] != 1 {
		t.Errorf("licenses by type = %v, want Basic:2 Stakeholder:1", rep.LicensesByType)
	}
	if rep.GroupsByType[string(model.GroupTypeAzureAD)] != 2 {
		t.Errorf("groups by type = %v, want azureActiveDirectory:2", rep.GroupsByType)
	}

	// Two basic at $6 each, stakeholder free.
	if rep.TotalLicenseCost == nil || *rep.TotalLicenseCost != 12.00 {
		t.Errorf("total license cost = %v, want 12.00", rep.TotalLicenseCost)
	}

	cb, ok := rep.ChargebackByGroup["Engineering"]
	if !ok {
		t.Fatalf("chargeback missing Engineering: %v", rep.ChargebackByGroup)
	}
	if cb.TotalUsers != 3 {
		t.Errorf("chargeback total users = %d, want 3", cb.TotalUsers)
	}
	if cb.TotalCost != 12.00 {
		t.Errorf("chargeback total cost = %v, want 12.00", cb.TotalCost)
	}
	if cb.Licenses["Basic"] != 2 || cb.Licenses["Stakeholder"] != 1 {
		t.Errorf("chargeback licenses = %v, want Basic:2 Stakeholder:1", cb.Licenses)
	}
}

func TestReport_TotalCostNilWhenZero(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())

	stakeholder := model.Entitlement{
		UserDescriptor:     "u1",
		AccessLevel:        model.AccessLevelStakeholder,
		LicenseDisplayName: "Stakeholder",
	}
	a.SetData([]model.User{testUser("u1", "Jamie")}, nil, []model.Entitlement{stakeholder}, nil)

	rep, err := a.Report("contoso")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.TotalLicenseCost != nil {
		t.Errorf("total license cost = %v, want nil for zero total", *rep.TotalLicenseCost)
	}
}

func TestReport_UnknownLicenseKey(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())

	// No display name and no classified level.
	unlabeled := model.Entitlement{UserDescriptor: "u1"}
	a.SetData([]model.User{testUser("u1", "Jamie")}, nil, []model.Entitlement{unlabeled}, nil)

	rep, err := a.Report("contoso")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.LicensesByType["Unknown"] != 1 {
		t.Errorf("licenses by type = %v, want Unknown:1", rep.LicensesByType)
	}
}

func TestProcessUsers_Deterministic(t *testing.T) {
	t.Parallel()
	a := New(DefaultOptions(), discardLogger())
	a.SetData([]model.User{
		testUser("u2", "Robin"),
		testUser("u1", "Jamie"),
	}, nil, nil, nil)

	if err := a.ProcessUsers(); err != nil {
		t.Fatalf("ProcessUsers() error = %v", err)
	}

	s := a.Summaries()
	if len(s) != 2 || s[0].User.Descriptor != "u1" || s[1].User.Descriptor != "u2" {
		t.Errorf("summaries not sorted by descriptor: %v", s)
	}
}
