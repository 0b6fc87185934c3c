package sfdx

// Org is one entry of `org list`. Optional fields are pointers because the
// CLI omits them rather than sending zero values.
type Org struct {
	Username       string  `json:"username"`
	OrgID          string  `json:"orgId,omitempty"`
	InstanceURL    string  `json:"instanceUrl,omitempty"`
	Alias          *string `json:"alias,omitempty"`
	Status         *string `json:"status,omitempty"`
	ConnectedState string  `json:"connectedStatus,omitempty"`
	ExpirationDate *string `json:"expirationDate,omitempty"`
	IsDevHub       *bool   `json:"isDevHub,omitempty"`
	DefaultMarker  *string `json:"defaultMarker,omitempty"`
	IsExpired      bool    `json:"isExpired,omitempty"`
}

// OrgListResult keeps empty and absent lists apart when re-encoded, since
// Persistent depends on whether salesforceOrgs was sent at all.
type OrgListResult struct {
	NonScratchOrgs []Org `json:"nonScratchOrgs"`
	SalesforceOrgs []Org `json:"salesforceOrgs"`
	ScratchOrgs    []Org `json:"scratchOrgs"`
}

// Persistent returns the non-scratch orgs. Newer CLI versions report them
// under salesforceOrgs, which takes precedence when present.
func (r OrgListResult) Persistent() []Org {
	if r.SalesforceOrgs != nil {
		return r.SalesforceOrgs
	}
	return r.NonScratchOrgs
}

type ScratchOrgResult struct {
	Username string   `json:"username"`
	OrgID    string   `json:"orgId"`
	Warnings []string `json:"warnings,omitempty"`
}

type UserDetails struct {
	OrgID       string `json:"orgId"`
	Username    string `json:"username"`
	InstanceURL string `json:"instanceUrl"`
	Alias       string `json:"alias"`
	AccessToken string `json:"accessToken"`
	ID          string `json:"id,omitempty"`
	LoginURL    string `json:"loginUrl,omitempty"`
}

type OpenResult struct {
	URL      string `json:"url"`
	OrgID    string `json:"orgId"`
	Username string `json:"username"`
}
