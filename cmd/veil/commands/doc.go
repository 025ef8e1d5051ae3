// Package commands defines the veil CLI.
//
// Commands
//
//   - keygen                   Create or replace the local key pair
//   - fingerprint              Print the local fingerprint
//   - fingerprints <party>     List fingerprints on file for a contact
//   - verify <party> <fp>      Mark a contact fingerprint as verified
//   - unverify <party> <fp>    Clear the verified flag
//   - policy get|set|clear     Inspect or change encryption policy
//   - demo                     Run two in-process accounts through a session
//
// Settings come from a TOML file (--config, default <home>/veil.toml) and
// are overridden by flags. State lives in <home>/properties.json, sealed
// when a passphrase is given.
package commands
