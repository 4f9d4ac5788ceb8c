// Package sample generates a synthetic organization snapshot for demos and
// development without Azure DevOps API access.
package sample

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/cmdouglas/adoreport/internal/model"
)

var groupTemplates = []string{
	"Development Team",
	"QA Team",
	"DevOps Team",
	"Product Management",
	"Engineering Managers",
	"Data Science Team",
	"Security Team",
	"Infrastructure Team",
	"Frontend Developers",
	"Backend Developers",
	"Mobile Development",
	"Cloud Architecture",
	"Platform Engineering",
	"Release Management",
	"Technical Writers",
}

// licenseProfile ties an access level to raw entitlement fields that
// classify back to the same level.
type licenseProfile struct {
	weight             float64
	level              model.AccessLevel
	displayName        string
	accountLicenseType string
	source             model.LicensingSource
	msdn               model.MsdnLicenseType
}

var licenseProfiles = []licenseProfile{
	{0.60, model.AccessLevelBasic, "Basic", "express", model.LicensingSourceAccount, model.MsdnLicenseNone},
	{0.20, model.AccessLevelStakeholder, "Stakeholder", "stakeholder", model.LicensingSourceAccount, model.MsdnLicenseNone},
	{0.10, model.AccessLevelBasicPlusTestPlans, "Basic + Test Plans", "advanced", model.LicensingSourceAccount, model.MsdnLicenseNone},
	{0.07, model.AccessLevelVSSubscriber, "Visual Studio Subscriber", "none", model.LicensingSourceMSDN, model.MsdnLicenseEligible},
	{0.03, model.AccessLevelVSEnterprise, "Visual Studio Enterprise", "none", model.LicensingSourceMSDN, model.MsdnLicenseEnterprise},
}

// Generator produces a reproducible synthetic dataset when seeded.
type Generator struct {
	faker  *gofakeit.Faker
	rng    *rand.Rand
	now    time.Time
	logger *slog.Logger
}

// NewGenerator seeds the generator. The same seed yields the same dataset.
func NewGenerator(seed int64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		faker:  gofakeit.New(uint64(seed)),
		rng:    rand.New(rand.NewSource(seed + 1)),
		now:    time.Now().UTC(),
		logger: logger,
	}
}

// Dataset is one complete synthetic organization snapshot.
type Dataset struct {
	Users        []model.User
	Groups       []model.Group
	Entitlements []model.Entitlement
	Memberships  []model.GroupMembership
}

// Generate builds a complete dataset: users, groups, entitlements and
// memberships including a few nested group-in-group edges.
func (g *Generator) Generate(numUsers, numGroups, avgGroupsPerUser int) *Dataset {
	g.logger.Info("generating sample dataset", "users", numUsers, "groups", numGroups)

	ds := &Dataset{
		Users:  g.generateUsers(numUsers),
		Groups: g.generateGroups(numGroups),
	}
	ds.Entitlements = g.generateEntitlements(ds.Users)
	ds.Memberships = g.generateMemberships(ds.Users, ds.Groups, avgGroupsPerUser)
	g.fillMemberCounts(ds)

	g.logger.Info("sample dataset generated",
		"users", len(ds.Users),
		"groups", len(ds.Groups),
		"entitlements", len(ds.Entitlements),
		"memberships", len(ds.Memberships))
	return ds
}

func (g *Generator) generateUsers(count int) []model.User {
	users := make([]model.User, 0, count)
	for i := 0; i < count; i++ {
		first := g.faker.FirstName()
		last := g.faker.LastName()
		domain := g.faker.DomainName()
		email := fmt.Sprintf("%s.%s@%s", strings.ToLower(first), strings.ToLower(last), domain)

		users = append(users, model.User{
			Descriptor:    "aad." + g.uuid(),
			DisplayName:   first + " " + last,
			PrincipalName: email,
			MailAddress:   email,
			SubjectKind:   model.SubjectKindUser,
			Domain:        domain,
			Origin:        "aad",
			OriginID:      g.uuid(),
		})
	}
	return users
}

func (g *Generator) generateGroups(count int) []model.Group {
	groups := make([]model.Group, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Team %d", i+1)
		if i < len(groupTemplates) {
			name = groupTemplates[i]
		}

		// Mostly directory groups with some project-scoped ones mixed in.
		isAAD := g.rng.Float64() > 0.3
		origin, groupType := "aad", model.GroupTypeAzureAD
		originID := g.uuid()
		if !isAAD {
			origin, groupType = "windows", model.GroupTypeWindows
			originID = ""
		}

		domain := g.faker.DomainName()
		groups = append(groups, model.Group{
			Descriptor:      "vssgp." + g.uuid(),
			DisplayName:     fmt.Sprintf("[%s]\\%s", g.faker.Company(), name),
			PrincipalName:   name,
			MailAddress:     strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "@" + domain,
			SubjectKind:     model.SubjectKindGroup,
			GroupType:       groupType,
			Domain:          domain,
			Origin:          origin,
			OriginID:        originID,
			IsSecurityGroup: true,
		})
	}
	return groups
}

func (g *Generator) generateEntitlements(users []model.User) []model.Entitlement {
	entitlements := make([]model.Entitlement, 0, len(users))
	for _, user := range users {
		profile := g.pickProfile()
		accessed := g.now.Add(-time.Duration(g.rng.Intn(90*24)) * time.Hour)

		entitlements = append(entitlements, model.Entitlement{
			UserDescriptor:     user.Descriptor,
			AccessLevel:        profile.level,
			LicenseDisplayName: profile.displayName,
			AccountLicenseType: profile.accountLicenseType,
			LicensingSource:    profile.source,
			MsdnLicenseType:    profile.msdn,
			LastAccessedDate:   &accessed,
		})
	}
	return entitlements
}

func (g *Generator) pickProfile() licenseProfile {
	r := g.rng.Float64()
	cumulative := 0.0
	for _, profile := range licenseProfiles {
		cumulative += profile.weight
		if r <= cumulative {
			return profile
		}
	}
	return licenseProfiles[0]
}

func (g *Generator) generateMemberships(users []model.User, groups []model.Group, avgGroupsPerUser int) []model.GroupMembership {
	var memberships []model.GroupMembership

	for _, user := range users {
		n := int(g.rng.NormFloat64()*1.5 + float64(avgGroupsPerUser))
		if n < 1 {
			n = 1
		}
		if n > len(groups) {
			n = len(groups)
		}

		for _, idx := range g.rng.Perm(len(groups))[:n] {
			memberships = append(memberships, model.GroupMembership{
				GroupDescriptor:  groups[idx].Descriptor,
				MemberDescriptor: user.Descriptor,
				MemberType:       model.SubjectKindUser,
			})
		}
	}

	// Nest a few groups inside others to exercise transitive resolution.
	if len(groups) > 3 {
		numParents := len(groups) / 3
		if numParents > 5 {
			numParents = 5
		}
		for _, pi := range g.rng.Perm(len(groups))[:numParents] {
			parent := groups[pi]
			numChildren := 1 + g.rng.Intn(3)
			for _, ci := range g.rng.Perm(len(groups)) {
				if numChildren == 0 {
					break
				}
				if groups[ci].Descriptor == parent.Descriptor {
					continue
				}
				memberships = append(memberships, model.GroupMembership{
					GroupDescriptor:  parent.Descriptor,
					MemberDescriptor: groups[ci].Descriptor,
					MemberType:       model.SubjectKindGroup,
				})
				numChildren--
			}
		}
	}

	return memberships
}

// fillMemberCounts mirrors what the live membership fetch does: each
// group's member count and member list come from its direct edges.
func (g *Generator) fillMemberCounts(ds *Dataset) {
	members := make(map[string][]string)
	for _, m := range ds.Memberships {
		members[m.GroupDescriptor] = append(members[m.GroupDescriptor], m.MemberDescriptor)
	}
	for i := range ds.Groups {
		grp := &ds.Groups[i]
		grp.Members = members[grp.Descriptor]
		grp.MemberCount = len(grp.Members)
	}
}

func (g *Generator) uuid() string {
	var b [16]byte
	g.rng.Read(b[:])
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
