package registration

import (
	"crypto/rand"
	"fmt"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
)

const (
	credentialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	credentialLength   = 8

	prefixVeterinarian = "VET-"
	prefixOrganisation = "ORG-"
)

// CredentialIssuer generates role-scoped human-readable identifiers. Issuance
// is independent per call and carries no uniqueness guarantee; the store
// enforces uniqueness under its index and re-issues on conflict.
type CredentialIssuer interface {
	Issue(role model.Role) (string, bool)
}

type randomIssuer struct{}

// NewCredentialIssuer returns the production issuer
func NewCredentialIssuer() CredentialIssuer {
	return randomIssuer{}
}

func (randomIssuer) Issue(role model.Role) (string, bool) {
	switch role {
	case model.RoleVeterinarian:
		return prefixVeterinarian + randomSuffix(), true
	case model.RoleOrgAdmin:
		return prefixOrganisation + randomSuffix(), true
	default:
		return "", false
	}
}

func randomSuffix() string {
	buf := make([]byte, credentialLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to
		// issue anything.
		panic(fmt.Sprintf("credential issuance: %v", err))
	}
	for i, b := range buf {
		buf[i] = credentialAlphabet[int(b)%len(credentialAlphabet)]
	}
	return string(buf)
}
