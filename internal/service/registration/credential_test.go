package registration

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
)

var (
	vetCredential = regexp.MustCompile(`^VET-[A-Z0-9]{8}$`)
	orgCredential = regexp.MustCompile(`^ORG-[A-Z0-9]{8}$`)
)

func TestIssueVeterinarianCredential(t *testing.T) {
	issuer := NewCredentialIssuer()

	for i := 0; i < 100; i++ {
		credential, ok := issuer.Issue(model.RoleVeterinarian)
		require.True(t, ok)
		assert.Regexp(t, vetCredential, credential)
	}
}

func TestIssueOrganisationCredential(t *testing.T) {
	issuer := NewCredentialIssuer()

	for i := 0; i < 100; i++ {
		credential, ok := issuer.Issue(model.RoleOrgAdmin)
		require.True(t, ok)
		assert.Regexp(t, orgCredential, credential)
	}
}

func TestIssuePetParentGetsNothing(t *testing.T) {
	issuer := NewCredentialIssuer()

	credential, ok := issuer.Issue(model.RolePetParent)
	assert.False(t, ok)
	assert.Empty(t, credential)
}

func TestIssueUnknownRoleGetsNothing(t *testing.T) {
	issuer := NewCredentialIssuer()

	credential, ok := issuer.Issue(model.Role("receptionist"))
	assert.False(t, ok)
	assert.Empty(t, credential)
}

func TestIssuedValuesAreIndependent(t *testing.T) {
	issuer := NewCredentialIssuer()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		credential, ok := issuer.Issue(model.RoleVeterinarian)
		require.True(t, ok)
		seen[credential] = true
	}

	// 50 draws from a 36^8 space colliding down to a handful would mean
	// the generator is broken.
	assert.Greater(t, len(seen), 45)
}
