package connection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"veil/internal/domain"
	"veil/internal/services/connection"
)

func TestHub_ClosedReachesSubscribers(t *testing.T) {
	h := connection.NewHub()
	var got []domain.AccountID
	sub := h.OnClosed(func(a domain.AccountID) { got = append(got, a) })

	h.Closed("xmpp:me@example")
	sub.Unsubscribe()
	h.Closed("xmpp:other@example")

	assert.Equal(t, []domain.AccountID{"xmpp:me@example"}, got)
}
