package dataset

import "strings"

// StateOther is the catch-all state for codes outside the lookup table.
const StateOther = "OTHER"

// stateCodes maps IBGE state codes (first two digits of a municipality code)
// to abbreviations. Only these six states are distinguished.
var stateCodes = map[string]string{
	"23": "CE",
	"35": "SP",
	"33": "RJ",
	"29": "BA",
	"31": "MG",
	"26": "PE",
}

// States lists the abbreviations a profile may use, catch-all last.
var States = []string{"CE", "SP", "RJ", "BA", "MG", "PE", StateOther}

// StateAbbreviation resolves a raw geographic code or an abbreviation to one
// of States. Anything unresolvable collapses to StateOther.
func StateAbbreviation(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" || v == "OUTRO" {
		return StateOther
	}
	for _, s := range States {
		if v == s {
			return s
		}
	}
	if len(v) >= 2 && isDigit(v[0]) && isDigit(v[1]) {
		if abbr, ok := stateCodes[v[:2]]; ok {
			return abbr
		}
	}
	return StateOther
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
