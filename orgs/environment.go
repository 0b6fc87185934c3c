// Package orgs turns the CLI's org listing into the numbered table the
// org manager shows, and keeps a local snapshot of that listing.
package orgs

import "github.com/aleksa11010/ScratchOrgBuilder/sfdx"

// DefaultMarkerToken marks the CLI's default username in the listing.
const DefaultMarkerToken = "(U)"

// RawEnvironment is an org as the CLI reports it; optional fields may be nil.
type RawEnvironment = sfdx.Org

// Environment is an org with every optional field filled in.
type Environment struct {
	Username       string
	OrgID          string
	InstanceURL    string
	Alias          string
	Status         string
	ExpirationDate string
	IsDevHub       bool
	DefaultMarker  string
	IsExpired      bool
	Scratch        bool
}

// Name is how the org is addressed on the command line.
func (e Environment) Name() string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Username
}

func (e Environment) Active() bool {
	return e.Status == "Active"
}

// Defaults holds the values used for fields the CLI left out.
type Defaults struct {
	Alias          string
	IsDevHub       bool
	DefaultMarker  string
	Status         string
	ExpirationDate string
}

var DefaultFields = Defaults{
	Alias:          "",
	IsDevHub:       false,
	DefaultMarker:  "",
	Status:         "Active",
	ExpirationDate: "",
}

// Normalize copies raw into an Environment, taking each missing optional
// field from defaults. Present fields are kept as reported, even when empty.
func Normalize(raw RawEnvironment, defaults Defaults) Environment {
	env := Environment{
		Username:       raw.Username,
		OrgID:          raw.OrgID,
		InstanceURL:    raw.InstanceURL,
		Alias:          defaults.Alias,
		Status:         defaults.Status,
		ExpirationDate: defaults.ExpirationDate,
		IsDevHub:       defaults.IsDevHub,
		DefaultMarker:  defaults.DefaultMarker,
		IsExpired:      raw.IsExpired,
	}
	if raw.Alias != nil {
		env.Alias = *raw.Alias
	}
	if raw.Status != nil {
		env.Status = *raw.Status
	}
	if raw.ExpirationDate != nil {
		env.ExpirationDate = *raw.ExpirationDate
	}
	if raw.IsDevHub != nil {
		env.IsDevHub = *raw.IsDevHub
	}
	if raw.DefaultMarker != nil {
		env.DefaultMarker = *raw.DefaultMarker
	}
	return env
}
