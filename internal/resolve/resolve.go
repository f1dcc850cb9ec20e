// Package resolve discovers which property keys in a feature
// collection carry which semantic fields. Dataset versions name the
// same field inconsistently, so each role carries an ordered candidate
// list and the first present candidate wins.
//
// Resolution is collection-level: keys are resolved once from a
// representative record and applied uniformly to every record in the
// collection. A dataset that genuinely mixes schemas across records
// would need per-record resolution; homogeneous collections are
// assumed here.
package resolve

import (
	"github.com/urbanlens/usi-cli/internal/normalize"
)

// Role identifies a semantic field the pipeline needs from a record.
type Role string

const (
	RoleScore        Role = "score"
	RolePlaceName    Role = "place_name"
	RoleRegionName   Role = "region_name"
	RoleHousingShare Role = "housing_share"
	RoleFoodShare    Role = "food_share"
	RoleRentAmount   Role = "rent_amount"
	RoleFoodAmount   Role = "food_amount"
	RoleIncomeAmount Role = "income_amount"
)

// AllRoles lists every semantic role.
var AllRoles = []Role{
	RoleScore,
	RolePlaceName,
	RoleRegionName,
	RoleHousingShare,
	RoleFoodShare,
	RoleRentAmount,
	RoleFoodAmount,
	RoleIncomeAmount,
}

// Candidates maps each role to its ordered candidate key list.
type Candidates map[Role][]string

// KeySet maps each role to the concrete property key chosen for it.
// Roles with no matching candidate are absent from the map.
type KeySet map[Role]string

// Key returns the resolved property key for a role, or "" if the role
// is unresolved.
func (ks KeySet) Key(role Role) string {
	return ks[role]
}

// Resolved reports whether a role resolved to a concrete key.
func (ks KeySet) Resolved(role Role) bool {
	_, ok := ks[role]
	return ok
}

// Resolve picks, for each role, the first candidate key present in the
// record with a non-missing value. Candidate order is the only
// tie-break. A nil or empty record resolves every role to unresolved;
// unresolved roles never produce an error downstream.
func Resolve(record map[string]any, candidates Candidates) KeySet {
	keys := make(KeySet, len(candidates))
	if len(record) == 0 {
		return keys
	}

	for role, names := range candidates {
		for _, name := range names {
			raw, ok := record[name]
			if !ok || normalize.IsMissing(raw) {
				continue
			}
			keys[role] = name
			break
		}
	}

	return keys
}

// Value returns the record's raw value for a role, or nil when the
// role is unresolved or the record lacks the resolved key.
func Value(record map[string]any, keys KeySet, role Role) any {
	name, ok := keys[role]
	if !ok {
		return nil
	}
	return record[name]
}
