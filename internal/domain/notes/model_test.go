package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	typ, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, TypeSession, typ)

	typ, err = ParseType(" Discharge ")
	require.NoError(t, err)
	assert.Equal(t, TypeDischarge, typ)

	_, err = ParseType("intake")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	n := Note{NoteType: TypeSession, FormattedNote: "x"}
	assert.NoError(t, n.Validate())

	n.FormattedNote = "  "
	assert.ErrorIs(t, n.Validate(), ErrEmptyFormattedNote)

	n.FormattedNote = "x"
	n.NoteType = "bogus"
	assert.Error(t, n.Validate())
}
