package shipping

import (
	"strings"

	"github.com/google/uuid"
)

// carrierPrefixes maps a configured carrier name to its tracking prefix.
var carrierPrefixes = map[string]string{
	"FEDEX": "FDX",
	"UPS":   "UPS",
	"USPS":  "USPS",
	"DHL":   "DHL",
}

// defaultPrefix is used when the carrier is unknown or unset.
const defaultPrefix = "TRK"

// NewTrackingNumber builds a tracking number of the form
// <PREFIX>-<12 uppercase hex chars> for the given carrier.
func NewTrackingNumber(carrier string) string {
	prefix, ok := carrierPrefixes[strings.ToUpper(carrier)]
	if !ok {
		prefix = defaultPrefix
	}
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return prefix + "-" + token[:12]
}
