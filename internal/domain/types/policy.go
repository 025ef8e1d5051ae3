package types

// Policy governs whether and how encryption is offered for a party.
// Values are immutable; use the With* helpers to derive variants.
type Policy struct {
	EnableManual      bool `json:"enable_manual"`
	EnableAutoStart   bool `json:"enable_auto_start"`
	RequireEncryption bool `json:"require_encryption"`
	SendAdvertisement bool `json:"send_advertisement"`
}

// DefaultPolicy allows manual and automatic start without advertising
// capability or requiring encryption.
func DefaultPolicy() Policy {
	return Policy{EnableManual: true, EnableAutoStart: true}
}

func (p Policy) WithManual(v bool) Policy            { p.EnableManual = v; return p }
func (p Policy) WithAutoStart(v bool) Policy         { p.EnableAutoStart = v; return p }
func (p Policy) WithRequireEncryption(v bool) Policy { p.RequireEncryption = v; return p }
func (p Policy) WithAdvertisement(v bool) Policy     { p.SendAdvertisement = v; return p }
