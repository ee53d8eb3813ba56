package period

// Expand returns the ordered list of calendar months a range covers,
// inclusive of both endpoints, walking forward with month wraparound.
// Reversed endpoints are swapped first, so a valid range never expands to
// an empty or negative-length list. Returns nil when any field is missing
// or out of range.
func Expand(r Range) []MonthYear {
	if !validMonths(r) || r.StartYear <= 0 || r.EndYear <= 0 {
		return nil
	}
	r = normalize(r)

	var months []MonthYear
	month, year := r.StartMonth, r.StartYear
	for {
		months = append(months, MonthYear{Month: month, Year: year})
		if month == r.EndMonth && year == r.EndYear {
			return months
		}
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
}
