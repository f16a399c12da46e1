package export

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NotAvailable renders absent or unusable numeric values.
const NotAvailable = "N/A"

var upper = cases.Upper(language.English)

// FormatCount renders a value truncated to an integer with thousands
// separators. nil, zero and non-finite values render as N/A.
func FormatCount(v *float64) string {
	if v == nil || *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return NotAvailable
	}
	return humanize.Comma(int64(*v))
}

// FormatDecimal renders a value with two decimals and thousands separators.
func FormatDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + whole + "." + frac
	}
	return sign + humanize.Comma(n) + "." + frac
}

// FormatSalesPerSF prefers the supplied ratio and otherwise derives it from
// visits and floor area.
func FormatSalesPerSF(salesPerSF, visits, floorArea *float64) string {
	if salesPerSF != nil && *salesPerSF != 0 {
		return FormatDecimal(*salesPerSF)
	}
	if visits == nil || floorArea == nil || *visits == 0 || *floorArea == 0 {
		return NotAvailable
	}
	return FormatDecimal(*visits / *floorArea)
}

// FormatRank renders a rank or N/A.
func FormatRank(rank *int) string {
	if rank == nil {
		return NotAvailable
	}
	return strconv.Itoa(*rank)
}

// FormatCounty upper-cases a county name and strips its County or Parish
// suffix.
func FormatCounty(county *string) string {
	if county == nil {
		return ""
	}
	c := upper.String(strings.TrimSpace(*county))
	for _, suffix := range []string{" COUNTY", " PARISH"} {
		c = strings.TrimSuffix(c, suffix)
	}
	return c
}

// FormatCoordinate renders a coordinate in its shortest exact form, always
// keeping a decimal point.
func FormatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
