package policy

import "veil/internal/domain"

// Stored policies are a single int: the codec version in the high bits and
// the flag set in the low 16 bits. Version 0 values are bare flag sets
// written before the version field existed.
const (
	codecVersion = 1
	versionShift = 16
	flagMask     = 1<<versionShift - 1
)

const (
	flagManualStart = 1 << iota
	flagAutoStart
	flagRequireEncryption
	flagSendAdvertisement

	knownFlags = flagManualStart | flagAutoStart | flagRequireEncryption | flagSendAdvertisement
)

// Encode packs p into its stored representation.
func Encode(p domain.Policy) int {
	flags := 0
	if p.EnableManual {
		flags |= flagManualStart
	}
	if p.EnableAutoStart {
		flags |= flagAutoStart
	}
	if p.RequireEncryption {
		flags |= flagRequireEncryption
	}
	if p.SendAdvertisement {
		flags |= flagSendAdvertisement
	}
	return codecVersion<<versionShift | flags
}

// Decode unpacks a stored value. Unknown flag bits are ignored. A negative
// value or an unknown version reports ok=false.
func Decode(v int) (p domain.Policy, ok bool) {
	if v < 0 {
		return domain.Policy{}, false
	}
	switch v >> versionShift {
	case 0, codecVersion:
	default:
		return domain.Policy{}, false
	}
	flags := v & flagMask & knownFlags
	return domain.Policy{
		EnableManual:      flags&flagManualStart != 0,
		EnableAutoStart:   flags&flagAutoStart != 0,
		RequireEncryption: flags&flagRequireEncryption != 0,
		SendAdvertisement: flags&flagSendAdvertisement != 0,
	}, true
}
