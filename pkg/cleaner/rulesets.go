// pkg/cleaner/rulesets.go
package cleaner

import (
	"fmt"
	"regexp"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// AllowedCountryCodes are the only country codes admitted for users and stores
var AllowedCountryCodes = []string{"GB", "US", "DE"}

var expiryDatePattern = regexp.MustCompile(`\d{2}/\d{2}`)

// RuleSet is the ordered rule list for one dataset kind
type RuleSet struct {
	Kind  model.DatasetKind
	Rules []Rule
}

// RulesFor returns the rule sequence for a dataset kind
func RulesFor(kind model.DatasetKind) (RuleSet, error) {
	build, ok := ruleSets[kind]
	if !ok {
		return RuleSet{}, fmt.Errorf("no cleaning rules for dataset %q", kind)
	}
	return RuleSet{Kind: kind, Rules: build()}, nil
}

var ruleSets = map[model.DatasetKind]func() []Rule{
	model.DatasetUsers: func() []Rule {
		return []Rule{
			Completeness(AnyMissing),
			DigitsOnly("phone_number"),
			TrailingCode("country_code", 2),
			Admit(AllowList("country_code", AllowedCountryCodes...)),
			NormalizeDate("date_of_birth"),
			NormalizeDate("join_date"),
		}
	},
	model.DatasetCards: func() []Rule {
		return []Rule{
			StripSubstring("card_number", "?"),
			Admit(MatchPattern("expiry_date", expiryDatePattern)),
			NormalizeDate("date_payment_confirmed"),
		}
	},
	model.DatasetStores: func() []Rule {
		return []Rule{
			Admit(AllowList("country_code", AllowedCountryCodes...)),
			DigitsOnly("staff_numbers"),
			StripSubstring("continent", "ee"),
			DefaultOnSentinel("longitude", "N/A", "0.0"),
			NormalizeDate("opening_date"),
		}
	},
	model.DatasetProducts: func() []Rule {
		return []Rule{
			Completeness(AllMissing),
			Categorical("removed", "category"),
			Admit(MaxLength("product_price", 7)),
			NormalizeDate("date_added"),
			ConvertWeight("weight", "weight_kg"),
		}
	},
	model.DatasetDates: func() []Rule {
		return []Rule{
			Categorical("time_period"),
			Completeness(AnyMissing),
			Admit(MaxLength("month", 2)),
			ResetIndex(),
		}
	},
	model.DatasetOrders: func() []Rule {
		return []Rule{
			DropColumns("first_name", "last_name", "1", "index"),
			Completeness(AnyMissing),
		}
	},
}
