// Package eas holds the decoded alert data model and the in-memory active
// alert set shared between the Alert Manager and the State Janitor.
package eas

import "time"

// Data is the decoded semantic view of a SAME header: free-form event text
// and canonical three-letter event code, originator, FIPS location codes,
// free-form locations, and a human-readable EAS text blob. It is immutable
// after construction and is the JSON schema the header-decoder subprocess
// must emit.
type Data struct {
	EventText  string   `json:"event_text"`
	EventCode  string   `json:"event_code"`
	Originator string   `json:"originator"`
	FIPS       []string `json:"fips"`
	Locations  string   `json:"locations"`
	EASText    string   `json:"eas_text"`
}

// Alert is a decoded Data plus the raw header that identifies it and its
// validity window.
type Alert struct {
	Data       Data
	RawHeader  string
	ReceivedAt time.Time
	ExpiresAt  time.Time
}

// NewAlert constructs an Alert whose ExpiresAt is ReceivedAt (now) plus the
// SAME header's declared purge duration.
func NewAlert(data Data, rawHeader string, purgeDuration time.Duration) Alert {
	now := time.Now()
	return Alert{
		Data:       data,
		RawHeader:  rawHeader,
		ReceivedAt: now,
		ExpiresAt:  now.Add(purgeDuration),
	}
}

// UniversalFIPS is the nationwide sentinel FIPS code.
const UniversalFIPS = "000000"

// IsRelevant reports whether an alert is relevant to the given watched FIPS
// set: the set is empty, the alert carries the universal code, or any alert
// FIPS is present in the watched set.
func (d Data) IsRelevant(watched map[string]struct{}) bool {
	if len(watched) == 0 {
		return true
	}
	for _, f := range d.FIPS {
		if f == UniversalFIPS {
			return true
		}
	}
	for _, f := range d.FIPS {
		if _, ok := watched[f]; ok {
			return true
		}
	}
	return false
}

// Event codes recognized by the status-file derivation rules in
// Category.
const (
	EventSevereWarning = "SVR"
	EventTornado       = "TOR"
	EventTornadoWatch  = "TOA"
	EventSevereWatch   = "SVA"
)
