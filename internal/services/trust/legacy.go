package trust

import (
	"github.com/sirupsen/logrus"

	"veil/internal/crypto"
)

func legacyPublicKey(address string) string { return address + ".publicKey" }

func legacyVerifiedKey(address string) string { return address + ".publicKey.verified" }

// migrateLegacy converts a single-key record into the fingerprint list
// format. Callers hold the party lock. Running it again after a successful
// migration is a no-op because the legacy keys are gone.
func (s *Service) migrateLegacy(address string) {
	der := s.props.GetBytes(legacyPublicKey(address), nil)
	if der == nil {
		return
	}
	log := s.log.WithFields(logrus.Fields{
		"function": "migrateLegacy",
		"address":  address,
	})

	verified := s.props.GetBool(legacyVerifiedKey(address), false)
	if err := s.props.RemoveProperty(legacyPublicKey(address)); err != nil {
		log.WithField("error", err.Error()).Error("Failed to remove legacy public key")
		return
	}
	if err := s.props.RemoveProperty(legacyVerifiedKey(address)); err != nil {
		log.WithField("error", err.Error()).Error("Failed to remove legacy verification flag")
	}

	pub, err := crypto.ParsePublicKey(der)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Dropping undecodable legacy public key")
		return
	}
	fp, err := crypto.FingerprintPublicKey(pub)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Dropping legacy public key without fingerprint")
		return
	}

	if err := s.props.SetProperty(verifiedKey(address, fp), verified); err != nil {
		log.WithField("error", err.Error()).Error("Failed to migrate verification flag")
		return
	}
	if err := s.appendUnique(address, fp); err != nil {
		log.WithField("error", err.Error()).Error("Failed to migrate fingerprint")
		return
	}
	log.WithFields(logrus.Fields{
		"fingerprint": fp,
		"verified":    verified,
	}).Info("Migrated legacy fingerprint record")
}
