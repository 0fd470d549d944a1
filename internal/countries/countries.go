// Package countries enumerates ISO 3166-1 countries for address forms.
package countries

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Country is an ISO 3166-1 alpha-2 code with its English name.
type Country struct {
	Code string
	Name string
}

// ISO 3166-1 alpha-2 codes of officially assigned countries.
var codes = strings.Fields(`
AD AE AF AG AI AL AM AO AQ AR AS AT AU AW AX AZ BA BB BD BE BF BG BH BI BJ BL
BM BN BO BQ BR BS BT BV BW BY BZ CA CC CD CF CG CH CI CK CL CM CN CO CR CU CV
CW CX CY CZ DE DJ DK DM DO DZ EC EE EG EH ER ES ET FI FJ FK FM FO FR GA GB GD
GE GF GG GH GI GL GM GN GP GQ GR GS GT GU GW GY HK HM HN HR HT HU ID IE IL IM
IN IO IQ IR IS IT JE JM JO JP KE KG KH KI KM KN KP KR KW KY KZ LA LB LC LI LK
LR LS LT LU LV LY MA MC MD ME MF MG MH MK ML MM MN MO MP MQ MR MS MT MU MV MW
MX MY MZ NA NC NE NF NG NI NL NO NP NR NU NZ OM PA PE PF PG PH PK PL PM PN PR
PS PT PW PY QA RE RO RS RU RW SA SB SC SD SE SG SH SI SJ SK SL SM SN SO SR SS
ST SV SX SY SZ TC TD TF TG TH TJ TK TL TM TN TO TR TT TV TW TZ UA UG UM US UY
UZ VA VC VE VG VI VN VU WF WS YE YT ZA ZM ZW
`)

var (
	once   sync.Once
	all    []Country
	byCode map[string]Country
)

func load() {
	namer := display.English.Regions()
	all = make([]Country, 0, len(codes))
	byCode = make(map[string]Country, len(codes))
	for _, code := range codes {
		region, err := language.ParseRegion(code)
		if err != nil || !region.IsCountry() {
			continue
		}
		c := Country{Code: code, Name: namer.Name(region)}
		if c.Name == "" {
			c.Name = code
		}
		all = append(all, c)
		byCode[code] = c
	}
	slices.SortFunc(all, func(a, b Country) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// All returns every country sorted by name.
func All() []Country {
	once.Do(load)
	return slices.Clone(all)
}

// Lookup returns the country for a case-insensitive alpha-2 code.
func Lookup(code string) (Country, bool) {
	once.Do(load)
	c, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Valid reports whether code is a known alpha-2 country code.
func Valid(code string) bool {
	_, ok := Lookup(code)
	return ok
}
