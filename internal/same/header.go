package same

import (
	"strconv"
	"strings"
	"time"
)

// HeaderFields are the event-derived placeholder fields the Audio Decoder
// publishes alongside a StartOfMessage burst, parsed directly from the raw
// SAME header grammar (ZCZC-ORG-EEE-PSSCCC[-PSSCCC...]+TTTT-JJJHHMM-LLLLLLLL-).
// They are superseded by the external header decoder's richer output in the
// Alert Manager's enrichment step. When that subprocess fails, the Alert
// Manager's placeholder takes the event code, originator and locations from
// them but leaves its FIPS list empty.
type HeaderFields struct {
	EventCode     string
	Originator    string
	Locations     string
	FIPS          []string
	ValidDuration time.Duration
}

// ParseHeaderFields extracts HeaderFields from a raw SAME header string. It
// returns ok=false if the header does not parse as a well-formed ZCZC
// burst.
func ParseHeaderFields(raw string) (fields HeaderFields, ok bool) {
	if !strings.HasPrefix(raw, "ZCZC-") {
		return HeaderFields{}, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(raw, "ZCZC-"), "-")

	plusIdx := strings.Index(body, "+")
	if plusIdx < 0 {
		return HeaderFields{}, false
	}
	head := body[:plusIdx]
	tail := body[plusIdx+1:]

	headParts := strings.Split(head, "-")
	if len(headParts) < 3 {
		return HeaderFields{}, false
	}

	fipsParts := headParts[2:]
	fields.Originator = headParts[0]
	fields.EventCode = headParts[1]
	fields.FIPS = append([]string(nil), fipsParts...)
	fields.Locations = strings.Join(fipsParts, ", ")

	tailParts := strings.Split(tail, "-")
	if len(tailParts) == 0 || len(tailParts[0]) != 4 {
		return HeaderFields{}, false
	}
	hh, errH := strconv.Atoi(tailParts[0][:2])
	mm, errM := strconv.Atoi(tailParts[0][2:])
	if errH != nil || errM != nil {
		return HeaderFields{}, false
	}
	fields.ValidDuration = time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute

	return fields, true
}
