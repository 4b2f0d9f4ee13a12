package cleaner

import (
	"fmt"
	"strings"
)

// Policy decides which rows survive validation.
type Policy string

const (
	// PolicyStrict drops a row with an unparsable date or any blank cell.
	PolicyStrict Policy = "strict"
	// PolicyLenient drops a row only for an unparsable date or a blank team.
	PolicyLenient Policy = "lenient"
)

// ParsePolicy maps a config value onto a Policy; empty selects strict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	}
	return "", &ConfigurationError{Field: "policy", Reason: fmt.Sprintf("unknown policy %q (want strict or lenient)", s)}
}

// keepRow applies the policy to a row of normalized cells. teams holds the
// positions of the home and away team columns.
func (p Policy) keepRow(cells []string, teams [2]int) bool {
	if p == PolicyLenient {
		return cells[teams[0]] != "" && cells[teams[1]] != ""
	}
	for _, c := range cells {
		if c == "" {
			return false
		}
	}
	return true
}
