package domain

import "fmt"

// StatusKind tags which variant a Status holds.
type StatusKind int

const (
	KindUnknown StatusKind = iota
	KindChecking
	KindOnline
	KindOffline
)

func (k StatusKind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindChecking:
		return "Checking"
	case KindOnline:
		return "Online"
	case KindOffline:
		return "Offline"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StatusKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Unknown":
		*k = KindUnknown
	case "Checking":
		*k = KindChecking
	case "Online":
		*k = KindOnline
	case "Offline":
		*k = KindOffline
	default:
		return fmt.Errorf("unknown status kind %q", b)
	}
	return nil
}

// Status is one of Unknown, Checking, Online{ResponseTimeMS} or
// Offline{Error}. Build it with the constructors below; ResponseTimeMS is
// only meaningful for Online and Error only for Offline.
type Status struct {
	Kind           StatusKind `json:"kind"`
	ResponseTimeMS int64      `json:"response_time_ms,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func Unknown() Status  { return Status{Kind: KindUnknown} }
func Checking() Status { return Status{Kind: KindChecking} }

func Online(responseTimeMS int64) Status {
	return Status{Kind: KindOnline, ResponseTimeMS: responseTimeMS}
}

func Offline(reason string) Status {
	return Status{Kind: KindOffline, Error: reason}
}

// Terminal reports whether s is the outcome of a completed probe.
func (s Status) Terminal() bool {
	switch s.Kind {
	case KindOnline, KindOffline:
		return true
	case KindUnknown, KindChecking:
		return false
	default:
		return false
	}
}

// Summary counts records per status kind.
type Summary struct {
	Online   int `json:"online"`
	Offline  int `json:"offline"`
	Checking int `json:"checking"`
	Unknown  int `json:"unknown"`
}

func Summarize(records []EndpointRecord) Summary {
	var s Summary
	for _, r := range records {
		switch r.Status.Kind {
		case KindOnline:
			s.Online++
		case KindOffline:
			s.Offline++
		case KindChecking:
			s.Checking++
		case KindUnknown:
			s.Unknown++
		}
	}
	return s
}
