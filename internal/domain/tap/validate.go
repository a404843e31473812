package tap

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// CardPrefix is the fixed issuer prefix of every beep card number.
const CardPrefix = "637805"

var cardPattern = regexp.MustCompile(`^637805\d{9}$`)

// IsRoomID reports whether value is a canonical version-4 UUID.
// uuid.Parse also accepts urn and braced forms, so the canonical length is
// checked first.
func IsRoomID(value string) bool {
	if len(value) != 36 {
		return false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// IsCardID reports whether value is a 15 digit card number with the issuer prefix.
func IsCardID(value string) bool {
	return cardPattern.MatchString(value)
}

// Contains reports whether every corner lies inside the region. Fewer than
// four corners never match, nor do NaN coordinates.
func (r Region) Contains(corners []Point) bool {
	if len(corners) < 4 {
		return false
	}
	for _, c := range corners {
		if !(c.X >= r.MinX && c.X <= r.MaxX && c.Y >= r.MinY && c.Y <= r.MaxY) {
			return false
		}
	}
	return true
}

// ScanVerdict explains why a scan was accepted or ignored.
type ScanVerdict string

const (
	ScanAccepted      ScanVerdict = "accepted"
	ScanOutOfRegion   ScanVerdict = "out_of_region"
	ScanInvalidFormat ScanVerdict = "invalid_format"
)

// Judge checks a decoded code against the region and the room id format.
// Geometry is checked first so that background codes never reach the parser.
func (r Region) Judge(scan ScanDetected) ScanVerdict {
	if !r.Contains(scan.Corners) {
		return ScanOutOfRegion
	}
	if !IsRoomID(scan.Payload) {
		return ScanInvalidFormat
	}
	return ScanAccepted
}

// MessageKind classifies an inbound relay payload.
type MessageKind string

const (
	MessageInformational MessageKind = "informational"
	MessageSuccess       MessageKind = "success"
	MessageFailure       MessageKind = "failure"
)

// ClassifyMessage applies the relay outcome contract: the success sentinel
// resolves the tap, empty payloads and card-number echoes of our own publish
// are informational, anything else is a failure text from the terminal.
func ClassifyMessage(payload, sentinel string) MessageKind {
	trimmed := strings.TrimSpace(payload)
	switch {
	case trimmed == "":
		return MessageInformational
	case sentinel != "" && trimmed == sentinel:
		return MessageSuccess
	case IsCardID(trimmed):
		return MessageInformational
	default:
		return MessageFailure
	}
}
