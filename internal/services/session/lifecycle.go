package session

import (
	"slices"

	"github.com/sirupsen/logrus"

	"veil/internal/crypto"
	"veil/internal/domain"
)

// StartSession begins an encrypted session with id from any state.
//
// Steps:
//  1. Under the entry lock, arm the establishment timeout and set LOADING.
//  2. Notify status listeners.
//  3. Ask the transform engine to start the handshake.
//  4. On failure, log it, emit a NoticeError and return a *DelegateError.
//     The LOADING status stays unless Config.RollbackOnDelegateFailure is set.
//
// Policy is not consulted; hosts decide whether a user may start by hand.
func (e *Engine) StartSession(id *domain.SessionIdentity) error {
	if err := check(id); err != nil {
		return err
	}

	ent := e.entry(id)
	ent.mu.Lock()
	prev, prevSet := ent.status, ent.set
	e.sched.Schedule(id, domain.StatusTimedOut, e.cfg.Timeout)
	ent.status, ent.set = domain.StatusLoading, true
	ent.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "StartSession",
		"identity": id.String(),
		"timeout":  e.cfg.Timeout.String(),
	}).Info("Starting session")
	e.notifyStatus(id)

	if err := e.transform.StartSession(id); err != nil {
		if e.cfg.RollbackOnDelegateFailure {
			e.rollback(id, domain.StatusLoading, prev, prevSet)
		}
		return e.delegateFailed("StartSession", id, err)
	}
	return nil
}

// EndSession stops treating id as encrypted.
//
// Steps:
//  1. Under the entry lock, cancel the timeout, set PLAINTEXT and drop the
//     authentication run.
//  2. Notify status (and authentication) listeners.
//  3. Ask the transform engine to end the session. A failure is reported
//     like in StartSession; PLAINTEXT stays unless rollback is configured.
func (e *Engine) EndSession(id *domain.SessionIdentity) error {
	if err := check(id); err != nil {
		return err
	}

	ent := e.entry(id)
	ent.mu.Lock()
	prev, prevSet := ent.status, ent.set
	e.sched.Cancel(id)
	ent.status, ent.set = domain.StatusPlaintext, true
	hadAuth := ent.auth != nil
	ent.auth = nil
	ent.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "EndSession",
		"identity": id.String(),
	}).Info("Ending session")
	e.notifyStatus(id)
	if hadAuth {
		e.notifyAuth(id)
	}

	if err := e.transform.EndSession(id); err != nil {
		if e.cfg.RollbackOnDelegateFailure {
			e.rollback(id, domain.StatusPlaintext, prev, prevSet)
		}
		return e.delegateFailed("EndSession", id, err)
	}
	return nil
}

// RefreshSession asks the transform engine to renegotiate. The resulting
// status arrives through the status report path.
func (e *Engine) RefreshSession(id *domain.SessionIdentity) error {
	if err := check(id); err != nil {
		return err
	}
	if err := e.transform.RefreshSession(id); err != nil {
		return e.delegateFailed("RefreshSession", id, err)
	}
	return nil
}

// rollback restores prev if the status is still the one the failed call
// committed.
func (e *Engine) rollback(id *domain.SessionIdentity, committed, prev domain.SessionStatus, prevSet bool) {
	ent := e.entry(id)
	ent.mu.Lock()
	if !ent.set || ent.status != committed {
		ent.mu.Unlock()
		return
	}
	if prevSet && prev == domain.StatusLoading {
		e.sched.Schedule(id, domain.StatusTimedOut, e.cfg.Timeout)
	} else {
		e.sched.Cancel(id)
	}
	ent.status, ent.set = prev, prevSet
	ent.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "rollback",
		"identity": id.String(),
		"status":   prev.String(),
	}).Info("Rolled back status after failed transform call")
	e.notifyStatus(id)
}

// statusReported applies the status the transform engine now holds for id.
//
// Steps:
//  1. Under the entry lock, read the transform status, arm the timeout for
//     LOADING or cancel it otherwise, and store the status.
//  2. ENCRYPTED: record the peer fingerprint and emit the started notices.
//     FINISHED: emit NoticeSessionFinished. PLAINTEXT after ENCRYPTED: emit
//     NoticeSessionLost.
//  3. Notify status listeners.
func (e *Engine) statusReported(id *domain.SessionIdentity) {
	if id == nil || id.Retired() {
		return
	}
	ent := e.entry(id)
	ent.mu.Lock()
	// Read under the entry lock so concurrent reports apply in the order
	// the transform engine reached them.
	st := e.transform.CurrentStatus(id)
	prev, prevSet := ent.status, ent.set
	if st == domain.StatusLoading {
		e.sched.Schedule(id, domain.StatusTimedOut, e.cfg.Timeout)
	} else {
		e.sched.Cancel(id)
	}
	ent.status, ent.set = st, true
	ent.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "statusReported",
		"identity": id.String(),
		"status":   st.String(),
	}).Info("Session status reported")

	switch st {
	case domain.StatusEncrypted:
		e.sessionEncrypted(id)
	case domain.StatusFinished:
		e.notice(domain.Notice{
			Kind:     domain.NoticeSessionFinished,
			Identity: id,
			Text:     id.DisplayName() + " has ended the private conversation",
		})
	case domain.StatusPlaintext:
		if prevSet && prev == domain.StatusEncrypted {
			e.notice(domain.Notice{
				Kind:     domain.NoticeSessionLost,
				Identity: id,
				Text:     "private conversation with " + id.DisplayName() + " lost",
			})
		}
	}
	e.notifyStatus(id)
}

// sessionEncrypted records the peer fingerprint and tells the user whether
// it still needs verification.
func (e *Engine) sessionEncrypted(id *domain.SessionIdentity) {
	log := e.log.WithFields(logrus.Fields{
		"function": "sessionEncrypted",
		"identity": id.String(),
	})
	pub, err := e.transform.RemotePublicKey(id)
	if err != nil {
		e.delegateFailed("RemotePublicKey", id, err)
		return
	}
	fp, err := crypto.FingerprintPublicKey(pub)
	if err != nil {
		e.delegateFailed("RemotePublicKey", id, err)
		return
	}

	party := id.Party()
	if !slices.Contains(e.keys.AllFingerprints(party), fp) {
		e.keys.SaveFingerprint(party, fp)
	}

	if e.keys.IsVerified(party, fp) {
		e.notice(domain.Notice{
			Kind:        domain.NoticeSessionStarted,
			Identity:    id,
			Fingerprint: fp,
			Text:        "private conversation with " + id.DisplayName() + " started",
		})
	} else {
		log.WithField("fingerprint", fp).Warn("Session encrypted with unverified fingerprint")
		e.keys.Unverify(id, fp)
		e.notice(domain.Notice{
			Kind:        domain.NoticeUnverifiedSessionStarted,
			Identity:    id,
			Fingerprint: fp,
			Text:        "unverified private conversation with " + id.DisplayName() + " started",
		})
		e.notice(domain.Notice{
			Kind:        domain.NoticeNeedsVerification,
			Identity:    id,
			Fingerprint: fp,
			Text:        id.GUID().String(),
		})
	}

	if eps := party.Endpoints(); party.SupportsEndpoints() && len(eps) > 1 {
		e.notice(domain.Notice{
			Kind:     domain.NoticeMultipleEndpoints,
			Identity: id,
			Text:     id.DisplayName() + " is connected from several devices",
		})
	}
}

// fire is the scheduler callback. The transition only applies while id is
// still LOADING and the expired task is still the one pending for id.
func (e *Engine) fire(id *domain.SessionIdentity, target domain.SessionStatus, claim func() bool) {
	ent, ok := e.lookup(id)
	if !ok || id.Retired() {
		claim()
		return
	}
	ent.mu.Lock()
	// Every Schedule for id runs under ent.mu, so a failed claim means a
	// newer task owns the status now.
	if !claim() || !ent.set || ent.status != domain.StatusLoading {
		ent.mu.Unlock()
		return
	}
	ent.status = target
	ent.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "fire",
		"identity": id.String(),
		"status":   target.String(),
	}).Info("Session establishment timed out")
	e.notifyStatus(id)
}
