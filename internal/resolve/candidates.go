package resolve

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultCandidates returns the built-in candidate key table covering
// the property spellings observed across dataset versions.
func DefaultCandidates() Candidates {
	return Candidates{
		RoleScore: {
			"usi", "USI", "urban_stress_index", "stress_index", "score",
		},
		RolePlaceName: {
			"city", "City", "name", "NAME", "place",
		},
		RoleRegionName: {
			"country", "Country", "region", "state",
		},
		RoleHousingShare: {
			"housing_pct", "housing_share", "rent_pct_income", "housing_percent",
		},
		RoleFoodShare: {
			"food_pct", "food_share", "food_pct_income", "food_percent",
		},
		RoleRentAmount: {
			"rent", "avg_rent", "monthly_rent", "rent_monthly",
		},
		RoleFoodAmount: {
			"food", "food_cost", "monthly_food", "food_monthly",
		},
		RoleIncomeAmount: {
			"income", "avg_income", "monthly_income", "salary",
		},
	}
}

// LoadCandidates reads a candidate table from a YAML file and merges
// it over the defaults. Roles absent from the file keep their built-in
// candidate lists.
func LoadCandidates(path string) (Candidates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: read candidates %s", path)
	}

	// The YAML has a top-level "fields" key mapping role names to
	// candidate key lists.
	var wrapper struct {
		Fields map[string][]string `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "resolve: parse candidates")
	}

	merged := DefaultCandidates()
	for name, list := range wrapper.Fields {
		if len(list) == 0 {
			continue
		}
		merged[Role(name)] = list
	}

	return merged, nil
}
