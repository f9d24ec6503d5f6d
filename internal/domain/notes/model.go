package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type NoteType string

const (
	TypeSession   NoteType = "session"
	TypeProgress  NoteType = "progress"
	TypeDischarge NoteType = "discharge"
)

var ErrEmptyFormattedNote = errors.New("formatted note is empty")

// ParseType validates a note type. Blank input falls back to a session note.
func ParseType(s string) (NoteType, error) {
	switch t := NoteType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeSession, nil
	case TypeSession, TypeProgress, TypeDischarge:
		return t, nil
	}
	return "", fmt.Errorf("unknown note type %q", s)
}

type Note struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" firestore:"-"`
	OwnerID       string    `gorm:"column:owner_id;not null;index:idx_notes_owner_created,priority:1" firestore:"userId"`
	Title         string    `firestore:"title"`
	NoteType      NoteType  `gorm:"column:note_type;type:varchar(20);not null" firestore:"noteType"`
	RawNote       string    `gorm:"type:text" firestore:"rawNote"`
	FormattedNote string    `gorm:"type:text;not null" firestore:"formattedNote"`
	CreatedAt     time.Time `gorm:"index:idx_notes_owner_created,priority:2" firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// Validate enforces the persistence invariant: no note is stored without
// formatted output.
func (n Note) Validate() error {
	if strings.TrimSpace(n.FormattedNote) == "" {
		return ErrEmptyFormattedNote
	}
	if _, err := ParseType(string(n.NoteType)); err != nil {
		return err
	}
	return nil
}
