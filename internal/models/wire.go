package models

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// FallbackReply is shown whenever the chat endpoint cannot be reached
	FallbackReply = "I'm having trouble connecting right now. Please try again later!"
)

// ChatRequest is the body of POST {base_url}/chat
type ChatRequest struct {
	Message        string      `json:"message"`
	SelectedImages []ImageItem `json:"selected_images"`
	UserID         string      `json:"user_id,omitempty"`
}

// SelectedTitles returns the titles of the selected images in request order
func (r ChatRequest) SelectedTitles() []string {
	titles := make([]string, 0, len(r.SelectedImages))
	for _, img := range r.SelectedImages {
		titles = append(titles, img.Title)
	}
	return titles
}

// GeneratedImage is an image produced by the chat endpoint
type GeneratedImage struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// ChatResponse is the body returned by the chat endpoint
type ChatResponse struct {
	Response       string          `json:"response"`
	Status         string          `json:"status"`
	GeneratedImage *GeneratedImage `json:"generated_image,omitempty"`
}

// OK reports whether the response carries a usable reply
func (r ChatResponse) OK() bool {
	return r.Status != StatusError && r.Response != ""
}

// FallbackChatResponse is returned instead of an error when the chat call fails
func FallbackChatResponse() ChatResponse {
	return ChatResponse{
		Response: FallbackReply,
		Status:   StatusError,
	}
}

// UploadResult reports the outcome of storing an image durably
type UploadResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DownloadResult reports the outcome of fetching binary content
type DownloadResult struct {
	Success     bool   `json:"success"`
	Data        []byte `json:"-"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}
