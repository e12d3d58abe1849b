package config

// Timezone pairs an IANA zone name with its POSIX TZ rule, the form
// the clock code consumes directly.
type Timezone struct {
	Name string `json:"name"`
	TZ   string `json:"tz"`
}

// Timezones is the fixed table offered by the configuration surface,
// ordered roughly west to east by UTC offset, with the Australian zones
// grouped together after East Asia.
var Timezones = []Timezone{
	{"Pacific/Honolulu", "HST10"},
	{"America/Anchorage", "AKST9AKDT,M3.2.0,M11.1.0"},
	{"America/Los_Angeles", "PST8PDT,M3.2.0,M11.1.0"},
	{"America/Denver", "MST7MDT,M3.2.0,M11.1.0"},
	{"America/Phoenix", "MST7"},
	{"America/Chicago", "CST6CDT,M3.2.0,M11.1.0"},
	{"America/Mexico_City", "CST6"},
	{"America/New_York", "EST5EDT,M3.2.0,M11.1.0"},
	{"America/Toronto", "EST5EDT,M3.2.0,M11.1.0"},
	{"America/Halifax", "AST4ADT,M3.2.0,M11.1.0"},
	{"America/Sao_Paulo", "<-03>3"},
	{"America/Argentina/Buenos_Aires", "<-03>3"},
	{"Atlantic/Azores", "<-01>1<+00>,M3.5.0/0,M10.5.0/1"},
	{"Etc/UTC", "UTC0"},
	{"Europe/London", "GMT0BST,M3.5.0/1,M10.5.0"},
	{"Europe/Dublin", "IST-1GMT0,M10.5.0,M3.5.0/1"},
	{"Europe/Lisbon", "WET0WEST,M3.5.0/1,M10.5.0"},
	{"Europe/Paris", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Berlin", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Madrid", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Rome", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Amsterdam", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Stockholm", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Warsaw", "CET-1CEST,M3.5.0,M10.5.0/3"},
	{"Europe/Athens", "EET-2EEST,M3.5.0/3,M10.5.0/4"},
	{"Europe/Helsinki", "EET-2EEST,M3.5.0/3,M10.5.0/4"},
	{"Europe/Kiev", "EET-2EEST,M3.5.0/3,M10.5.0/4"},
	{"Europe/Istanbul", "<+03>-3"},
	{"Europe/Moscow", "MSK-3"},
	{"Asia/Dubai", "<+04>-4"},
	{"Asia/Karachi", "PKT-5"},
	{"Asia/Kolkata", "IST-5:30"},
	{"Asia/Dhaka", "<+06>-6"},
	{"Asia/Bangkok", "<+07>-7"},
	{"Asia/Jakarta", "WIB-7"},
	{"Asia/Shanghai", "CST-8"},
	{"Asia/Hong_Kong", "HKT-8"},
	{"Asia/Singapore", "<+08>-8"},
	{"Asia/Taipei", "CST-8"},
	{"Asia/Tokyo", "JST-9"},
	{"Asia/Seoul", "KST-9"},
	{"Australia/Perth", "AWST-8"},
	{"Australia/Adelaide", "ACST-9:30ACDT,M10.1.0,M4.1.0/3"},
	{"Australia/Sydney", "AEST-10AEDT,M10.1.0,M4.1.0/3"},
	{"Australia/Brisbane", "AEST-10"},
	{"Pacific/Auckland", "NZST-12NZDT,M9.5.0,M4.1.0/3"},
}

// LookupTimezone resolves a zone name to its POSIX rule.
func LookupTimezone(name string) (string, bool) {
	for _, tz := range Timezones {
		if tz.Name == name {
			return tz.TZ, true
		}
	}
	return "", false
}
