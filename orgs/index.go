package orgs

import "github.com/aleksa11010/ScratchOrgBuilder/sfdx"

// Index numbers environments from 1: persistent orgs first, then scratch orgs.
// It is rebuilt on every run and never stored.
type Index struct {
	Entries []Environment
	// Default is the position of the CLI default username, or 1.
	Default int
}

func BuildIndex(list sfdx.OrgListResult) Index {
	idx := Index{Default: 1}
	for _, raw := range list.Persistent() {
		idx.Entries = append(idx.Entries, Normalize(raw, DefaultFields))
	}
	for _, raw := range list.ScratchOrgs {
		env := Normalize(raw, DefaultFields)
		env.Scratch = true
		idx.Entries = append(idx.Entries, env)
	}
	for i, env := range idx.Entries {
		if env.DefaultMarker == DefaultMarkerToken {
			idx.Default = i + 1
			break
		}
	}
	return idx
}

func (x Index) Len() int {
	return len(x.Entries)
}

// At returns the environment at a 1-based position.
func (x Index) At(pos int) (Environment, bool) {
	if pos < 1 || pos > len(x.Entries) {
		return Environment{}, false
	}
	return x.Entries[pos-1], true
}
