package photo

import "github.com/google/uuid"

// URLer resolves storage keys to public URLs.
type URLer interface {
	URL(key string) string
}

// Response is the public view of a photo.
type Response struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	ThumbURL  string    `json:"thumb_url,omitempty"`
	Processed bool      `json:"processed"`
}

// ResponseFrom builds the public view; until processing finishes the
// thumbnail is absent.
func ResponseFrom(p *Photo, urls URLer) Response {
	resp := Response{
		ID:        p.ID,
		URL:       urls.URL(p.StorageKey),
		Processed: p.ProcessStatus == StatusDone,
	}
	if p.ThumbKey.Valid {
		resp.ThumbURL = urls.URL(p.ThumbKey.String)
	}
	return resp
}
