package domain

// InvalidMonth is the label for month numbers outside 1–12.
const InvalidMonth = "Invalid Month"

var monthNames = map[int]string{
	1:  "January",
	2:  "February",
	3:  "March",
	4:  "April",
	5:  "May",
	6:  "June",
	7:  "July",
	8:  "August",
	9:  "September",
	10: "October",
	11: "November",
	12: "December",
}

// MonthName maps a month number to its English name.
func MonthName(m int) string {
	if name, ok := monthNames[m]; ok {
		return name
	}
	return InvalidMonth
}
