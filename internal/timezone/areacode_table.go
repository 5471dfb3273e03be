package timezone

import "strings"

// AreaCodeTable is the default ZoneTable: an embedded US/CA area-code map.
// Unlisted area codes return (_, false); callers must tolerate a missing
// zone (§4.2). An area code spanning more than one zone maps to a single
// best-guess zone.
type AreaCodeTable struct {
	zones map[string]string
}

// NewAreaCodeTable builds the default table. It is intentionally small and
// pluggable: a production deployment can swap in a denser table without
// touching the Oracle.
func NewAreaCodeTable() *AreaCodeTable {
	return &AreaCodeTable{zones: defaultAreaCodes}
}

// ZoneOf extracts the NANP area code from an E.164 US/CA number
// (+1XXXYYYZZZZ) and looks it up. Numbers outside +1 return (_, false).
func (t *AreaCodeTable) ZoneOf(e164 string) (string, bool) {
	n := strings.TrimPrefix(e164, "+")
	if !strings.HasPrefix(n, "1") || len(n) != 11 {
		return "", false
	}
	areaCode := n[1:4]
	zone, ok := t.zones[areaCode]
	return zone, ok
}

// defaultAreaCodes covers a representative slice of NANP area codes per
// region; best-guess entries are used where an area code spans more than
// one zone (e.g. split codes favor the most populous city).
var defaultAreaCodes = map[string]string{
	// Pacific
	"415": "America/Los_Angeles", "628": "America/Los_Angeles",
	"213": "America/Los_Angeles", "310": "America/Los_Angeles",
	"323": "America/Los_Angeles", "424": "America/Los_Angeles",
	"818": "America/Los_Angeles", "619": "America/Los_Angeles",
	"858": "America/Los_Angeles", "916": "America/Los_Angeles",
	"925": "America/Los_Angeles", "510": "America/Los_Angeles",
	"650": "America/Los_Angeles", "707": "America/Los_Angeles",
	"206": "America/Los_Angeles", "253": "America/Los_Angeles",
	"360": "America/Los_Angeles", "425": "America/Los_Angeles",
	"503": "America/Los_Angeles", "541": "America/Los_Angeles",
	"702": "America/Los_Angeles", "775": "America/Los_Angeles",
	"604": "America/Vancouver", "778": "America/Vancouver", "250": "America/Vancouver",

	// Mountain
	"303": "America/Denver", "720": "America/Denver", "970": "America/Denver",
	"480": "America/Phoenix", "602": "America/Phoenix", "623": "America/Phoenix",
	"801": "America/Denver", "385": "America/Denver",
	"505": "America/Denver", "575": "America/Denver",
	"403": "America/Edmonton", "587": "America/Edmonton", "780": "America/Edmonton",

	// Central
	"312": "America/Chicago", "773": "America/Chicago", "872": "America/Chicago",
	"630": "America/Chicago", "847": "America/Chicago",
	"214": "America/Chicago", "469": "America/Chicago", "972": "America/Chicago",
	"713": "America/Chicago", "281": "America/Chicago", "832": "America/Chicago",
	"512": "America/Chicago", "737": "America/Chicago",
	"612": "America/Chicago", "651": "America/Chicago",
	"314": "America/Chicago", "816": "America/Chicago",
	"504": "America/Chicago", "985": "America/Chicago",
	"405": "America/Chicago", "918": "America/Chicago",
	"204": "America/Winnipeg", "306": "America/Regina",

	// Eastern
	"212": "America/New_York", "646": "America/New_York", "917": "America/New_York",
	"718": "America/New_York", "347": "America/New_York", "929": "America/New_York",
	"617": "America/New_York", "857": "America/New_York",
	"202": "America/New_York", "301": "America/New_York", "240": "America/New_York",
	"215": "America/New_York", "267": "America/New_York", "445": "America/New_York",
	"305": "America/New_York", "786": "America/New_York", "954": "America/New_York",
	"404": "America/New_York", "470": "America/New_York", "678": "America/New_York",
	"313": "America/Detroit", "248": "America/Detroit",
	"412": "America/New_York", "724": "America/New_York",
	"704": "America/New_York", "980": "America/New_York",
	"416": "America/Toronto", "647": "America/Toronto", "437": "America/Toronto",
	"514": "America/Toronto", "438": "America/Toronto",
	"902": "America/Halifax",

	// Alaska / Hawaii
	"907": "America/Anchorage",
	"808": "Pacific/Honolulu",
}
