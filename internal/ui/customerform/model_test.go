package customerform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/leadboard/internal/model"
)

func TestSplitMembers(t *testing.T) {
	assert.Equal(t, []string{"Meera", "Kabir"}, SplitMembers(" Meera, ,Kabir "))
	assert.Nil(t, SplitMembers("  "))
}

func TestProfilePatchOnlyChangedFields(t *testing.T) {
	original := model.Customer{
		ID:          "c1",
		Name:        "RAVI",
		Phone:       "98765",
		MemberNames: []string{"Meera"},
	}
	updated := original
	updated.Phone = "12345"
	updated.MemberNames = []string{"Meera", "Kabir"}

	p := ProfilePatch(original, updated)
	assert.Equal(t, model.Patch{
		model.FieldPhone:       "12345",
		model.FieldMemberNames: []string{"Meera", "Kabir"},
	}, p)

	assert.Empty(t, ProfilePatch(original, original))
}
