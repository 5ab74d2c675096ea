package influence

import (
	"github.com/Masterminds/semver/v3"
)

// Constraint reports whether one determinant's declared range admits the
// version the peer dependency actually resolved to.
type Constraint struct {
	Entry     string `json:"entry"`     // determinant entry key
	Range     string `json:"range"`     // declared version range
	Satisfied bool   `json:"satisfied"` // range admits the resolved version
	Known     bool   `json:"known"`     // false when the range or version didn't parse
}

// Constraints evaluates each determinant's declared range for the traced
// name against the resolved version. Ranges that don't parse as semver
// (workspace:, npm:, git URLs, tags) and unparseable versions degrade to
// Known=false rather than failing: a partial report is more useful than none.
func (r *Result) Constraints(resolvedVersion string) []Constraint {
	version, verr := semver.NewVersion(resolvedVersion)

	out := make([]Constraint, 0, len(r.Determinants))
	for _, det := range r.Determinants {
		dep, ok := det.Dep(r.Name)
		if !ok {
			continue
		}
		c := Constraint{Entry: det.Key, Range: dep.Spec}
		if verr == nil {
			if rng, err := semver.NewConstraint(dep.Spec); err == nil {
				c.Known = true
				c.Satisfied = rng.Check(version)
			}
		}
		out = append(out, c)
	}
	return out
}
