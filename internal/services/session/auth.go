package session

import (
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
)

// AuthProgress returns the authentication progress of id. ok is false when
// no authentication has been attempted since the session last ended.
func (e *Engine) AuthProgress(id *domain.SessionIdentity) (p domain.AuthProgress, ok bool) {
	if id == nil {
		return domain.AuthProgress{}, false
	}
	ent, found := e.lookup(id)
	if !found {
		return domain.AuthProgress{}, false
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.auth == nil {
		return domain.AuthProgress{}, false
	}
	return *ent.auth, true
}

// resetAuth starts a new authentication run for id.
func (e *Engine) resetAuth(id *domain.SessionIdentity, question string) {
	ent := e.entry(id)
	ent.mu.Lock()
	ent.auth = &domain.AuthProgress{Stage: domain.AuthInProgress, Question: question, Steps: 1}
	ent.mu.Unlock()
	e.notifyAuth(id)
}

// advanceAuth moves the current run to stage. Terminal stages are final
// until the next reset. Without a run nothing is tracked: runs only start
// on InitSmp, RespondSmp or a challenge from the peer.
func (e *Engine) advanceAuth(id *domain.SessionIdentity, stage domain.AuthStage) {
	ent, ok := e.lookup(id)
	if !ok {
		return
	}
	ent.mu.Lock()
	if ent.auth == nil || ent.auth.Stage.Terminal() {
		ent.mu.Unlock()
		return
	}
	ent.auth.Stage = stage
	ent.auth.Steps++
	ent.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"function": "advanceAuth",
		"identity": id.String(),
		"stage":    stage.String(),
	}).Info("Authentication progress")
	e.notifyAuth(id)
}

// InitSmp starts mutual-secret authentication with an optional question.
func (e *Engine) InitSmp(id *domain.SessionIdentity, question, secret string) error {
	if err := check(id); err != nil {
		return err
	}
	e.resetAuth(id, question)
	if err := e.transform.InitAuth(id, question, secret); err != nil {
		e.advanceAuth(id, domain.AuthFailed)
		return e.delegateFailed("InitSmp", id, err)
	}
	return nil
}

// RespondSmp answers a challenge received from the peer.
func (e *Engine) RespondSmp(id *domain.SessionIdentity, question, secret string) error {
	if err := check(id); err != nil {
		return err
	}
	e.resetAuth(id, question)
	if err := e.transform.RespondAuth(id, question, secret); err != nil {
		e.advanceAuth(id, domain.AuthFailed)
		return e.delegateFailed("RespondSmp", id, err)
	}
	return nil
}

// AbortSmp cancels the running authentication.
func (e *Engine) AbortSmp(id *domain.SessionIdentity) error {
	if err := check(id); err != nil {
		return err
	}
	err := e.transform.AbortAuth(id)
	e.advanceAuth(id, domain.AuthAborted)
	if err != nil {
		return e.delegateFailed("AbortSmp", id, err)
	}
	return nil
}
