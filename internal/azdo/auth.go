// Package azdo fetches users, groups, entitlements and memberships from
// the Azure DevOps REST APIs.
package azdo

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials holds the PAT and organization used for API access.
type Credentials struct {
	PAT          string
	Organization string
}

// Validate checks that both the token and organization are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.PAT) == "" {
		return fmt.Errorf("a personal access token is required, set AZDO_PAT")
	}
	if c.Organization == "" {
		return fmt.Errorf("an organization name is required, set AZDO_ORGANIZATION or pass --organization")
	}
	return nil
}

// AuthHeader returns the Basic authorization header value for the PAT.
// Azure DevOps PATs use an empty username with the token as password.
func (c Credentials) AuthHeader() string {
	encoded := base64.StdEncoding.EncodeToString([]byte(":" + c.PAT))
	return "Basic " + encoded
}

// CredentialsFromEnvironment builds Credentials from AZDO_PAT and
// AZDO_ORGANIZATION, loading a .env file first if one exists. An explicit
// organization overrides the environment.
func CredentialsFromEnvironment(organization string) (Credentials, error) {
	_ = godotenv.Load()

	creds := Credentials{
		PAT:          os.Getenv("AZDO_PAT"),
		Organization: organization,
	}
	if creds.Organization == "" {
		creds.Organization = os.Getenv("AZDO_ORGANIZATION")
	}

	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}
