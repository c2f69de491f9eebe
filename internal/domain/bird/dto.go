package bird

import "github.com/google/uuid"

// Response is the public view of a bird.
type Response struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Species string    `json:"species"`
	IconURL *string   `json:"icon_url,omitempty"`
}

func ResponseFrom(b *Bird) Response {
	resp := Response{ID: b.ID, Name: b.Name, Species: b.Species}
	if b.IconURL.Valid {
		url := b.IconURL.String
		resp.IconURL = &url
	}
	return resp
}

func ResponsesFrom(birds []*Bird) []Response {
	out := make([]Response, 0, len(birds))
	for _, b := range birds {
		out = append(out, ResponseFrom(b))
	}
	return out
}
