package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "intake-session.txt", ExportFilename("Intake Session"))
	assert.Equal(t, "visit-1.txt", ExportFilename("Visit #1"))
	assert.Equal(t, "note.txt", ExportFilename(""))
	assert.Equal(t, "note.txt", ExportFilename("  !!  "))
}
