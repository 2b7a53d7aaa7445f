package extraction

import (
	"regexp"
	"sort"
	"strings"
)

// Unit is a canonical weight or volume unit.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitPound      Unit = "lbs"
	UnitOunce      Unit = "oz"
	UnitLiter      Unit = "liter"
	UnitMilliliter Unit = "ml"
	UnitFluidOunce Unit = "fl oz"
	UnitCup        Unit = "cup"
	UnitPint       Unit = "pint"
	UnitQuart      Unit = "quart"
	UnitGallon     Unit = "gallon"
)

// unitSpellings maps every accepted spelling to its canonical unit. Each
// canonical token also maps to itself.
var unitSpellings = map[string]Unit{
	"kg": UnitKilogram, "kgs": UnitKilogram, "kilo": UnitKilogram, "kilos": UnitKilogram,
	"kilogram": UnitKilogram, "kilograms": UnitKilogram,
	"kilogramme": UnitKilogram, "kilogrammes": UnitKilogram,

	"g": UnitGram, "gr": UnitGram, "gram": UnitGram, "grams": UnitGram,
	"gramme": UnitGram, "grammes": UnitGram,

	"lb": UnitPound, "lbs": UnitPound, "pound": UnitPound, "pounds": UnitPound,

	"oz": UnitOunce, "ounce": UnitOunce, "ounces": UnitOunce,

	"l": UnitLiter, "ltr": UnitLiter, "liter": UnitLiter, "liters": UnitLiter,
	"litre": UnitLiter, "litres": UnitLiter,

	"ml": UnitMilliliter, "milliliter": UnitMilliliter, "milliliters": UnitMilliliter,
	"millilitre": UnitMilliliter, "millilitres": UnitMilliliter,

	"fl oz": UnitFluidOunce, "floz": UnitFluidOunce, "fl. oz": UnitFluidOunce,
	"fluid ounce": UnitFluidOunce, "fluid ounces": UnitFluidOunce,

	"cup": UnitCup, "cups": UnitCup,

	"pint": UnitPint, "pints": UnitPint, "pt": UnitPint,

	"quart": UnitQuart, "quarts": UnitQuart, "qt": UnitQuart,

	"gallon": UnitGallon, "gallons": UnitGallon, "gal": UnitGallon,
}

// NormalizeUnit maps a unit spelling to its canonical token. Unknown spellings
// come back unchanged.
func NormalizeUnit(u string) Unit {
	key := reWhitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(u)), " ")
	if canonical, ok := unitSpellings[key]; ok {
		return canonical
	}
	return Unit(u)
}

// unitAlternation is a regexp alternation over every spelling, longest first
// so that "kilograms" wins over "kg" and "fl oz" over "oz".
var unitAlternation = func() string {
	spellings := make([]string, 0, len(unitSpellings))
	for s := range unitSpellings {
		spellings = append(spellings, s)
	}
	sort.Slice(spellings, func(i, j int) bool {
		if len(spellings[i]) != len(spellings[j]) {
			return len(spellings[i]) > len(spellings[j])
		}
		return spellings[i] < spellings[j]
	})
	quoted := make([]string, len(spellings))
	for i, s := range spellings {
		quoted[i] = regexp.QuoteMeta(s)
	}
	return strings.Join(quoted, "|")
}()
