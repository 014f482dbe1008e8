package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/leadboard/internal/identity"
)

var _ identity.SessionStore = SessionStore{}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session-default", SessionKey(""))
	assert.Equal(t, "session-work", SessionKey("work"))
	assert.Equal(t, "imap-sales@example.com", IMAPKey("sales@example.com"))
}
