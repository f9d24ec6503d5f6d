package notes

import (
	"time"

	"soapnotes-app/internal/api/users"
	dn "soapnotes-app/internal/domain/notes"
)

type NoteDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	NoteType      string    `json:"note_type"`
	RawNote       string    `json:"raw_note"`
	FormattedNote string    `json:"formatted_note"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ListResponse struct {
	Items      []NoteDTO          `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	TotalItems int                `json:"total_items"`
	Filter     string             `json:"type"`
	Search     string             `json:"q"`
	Sort       string             `json:"sort"`
	Allowance  users.AllowanceDTO `json:"allowance"`
}

type formatRequest struct {
	RawNote string `json:"raw_note"`
}

type createRequest struct {
	Title         string `json:"title"`
	NoteType      string `json:"note_type"`
	RawNote       string `json:"raw_note"`
	FormattedNote string `json:"formatted_note"`
}

type updateRequest struct {
	Title         *string `json:"title"`
	NoteType      *string `json:"note_type"`
	FormattedNote *string `json:"formatted_note"`
}

func toDTO(n dn.Note) NoteDTO {
	return NoteDTO{
		ID:            n.ID,
		Title:         n.Title,
		NoteType:      string(n.NoteType),
		RawNote:       n.RawNote,
		FormattedNote: n.FormattedNote,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

func toDTOs(list []dn.Note) []NoteDTO {
	out := make([]NoteDTO, 0, len(list))
	for _, n := range list {
		out = append(out, toDTO(n))
	}
	return out
}
