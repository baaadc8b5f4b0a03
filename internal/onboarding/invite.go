package onboarding

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	inviteAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength = 6
)

// InviteCodePattern matches every code an InviteCodes issuer produces.
var InviteCodePattern = regexp.MustCompile(`^[A-Z]+-[A-Z0-9]{6}$`)

// CodeIssuer issues family invite codes.
type CodeIssuer interface {
	Issue() (string, error)
}

// InviteCodes issues codes of the form PREFIX-XXXXXX with each X drawn
// uniformly from A-Z0-9 using crypto/rand. Uniqueness is the family
// store's concern.
type InviteCodes struct {
	Prefix string
}

// NewInviteCodes creates an issuer for prefix.
func NewInviteCodes(prefix string) *InviteCodes {
	return &InviteCodes{Prefix: prefix}
}

// Issue implements CodeIssuer.
func (c *InviteCodes) Issue() (string, error) {
	limit := big.NewInt(int64(len(inviteAlphabet)))
	buf := make([]byte, inviteCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return c.Prefix + "-" + string(buf), nil
}
