package agent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/img-edit-agent/studio/internal/models"
	"github.com/img-edit-agent/studio/internal/providers"
)

// Reply is the answer to a chat request
type Reply struct {
	Text string
	// Image is set when the reply produced a new image
	Image *models.GeneratedImage
}

// Responder produces the reply for a chat request
type Responder interface {
	Respond(ctx context.Context, req Request) (Reply, error)
}

// Reply categories used by TemplateResponder
const (
	CategoryGreeting       = "greeting"
	CategoryImageSelection = "image_selection"
	CategoryEditingRequest = "editing_request"
	CategoryGeneralHelp    = "general_help"
	CategoryUpload         = "upload"
)

// Templates holds the canned replies per category
var Templates = map[string][]string{
	CategoryGreeting: {
		"Hello! I'm your AI image editing assistant. How can I help you today?",
		"Hi there! What would you like to work on?",
		"Welcome! I'm your AI assistant ready to help you transform your images.",
	},
	CategoryImageSelection: {
		"I can see you've selected some images. What would you like to do with them?",
		"Great choice! Those images look interesting. What kind of editing you need?",
		"Perfect! I can help you edit those selected images. What's your vision?",
	},
	CategoryEditingRequest: {
		"I understand you want to edit your images. Let me help you with that!",
		"Great! I can assist you with image editing. What specific changes you need?",
		"Excellent! I'm ready to help you transform your images.",
	},
	CategoryGeneralHelp: {
		"Just let me know what you'd like to do!",
		"Feel free to ask me anything about image editing.",
	},
	CategoryUpload: {
		"I see you've uploaded an image! What would you like to do with it?",
		"Great! I can help you edit that uploaded image.",
		"Perfect! I'm ready to work with your uploaded image. What's your vision?",
	},
}

var (
	greetingWords = []string{"hello", "hi", "hey", "greetings"}
	editingWords  = []string{"edit", "change", "modify", "transform", "enhance", "filter", "effect"}
)

// TemplateResponder answers from Templates without calling a model
type TemplateResponder struct {
	// Pick chooses an index in [0, n); defaults to math/rand/v2
	Pick func(n int) int
}

// Categorize returns the template category for a message
func Categorize(message string, selected []string) string {
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, w := range words {
		for _, g := range greetingWords {
			if w == g {
				return CategoryGreeting
			}
		}
	}

	if strings.Contains(lower, "uploaded") || strings.Contains(message, "📷") {
		return CategoryUpload
	}

	if len(selected) > 0 {
		return CategoryImageSelection
	}

	if WantsEdit(message) {
		return CategoryEditingRequest
	}

	return CategoryGeneralHelp
}

// WantsEdit reports whether the message asks for a change to an image
func WantsEdit(message string) bool {
	lower := strings.ToLower(message)
	for _, e := range editingWords {
		if strings.Contains(lower, e) {
			return true
		}
	}
	return false
}

// Respond picks a template for the request's category
func (t TemplateResponder) Respond(_ context.Context, req Request) (Reply, error) {
	pick := t.Pick
	if pick == nil {
		pick = rand.IntN
	}

	category := Categorize(req.Message, req.SelectedImages)
	options := Templates[category]
	reply := options[pick(len(options))]

	if category == CategoryImageSelection {
		reply = fmt.Sprintf("%s I can see you've selected: %s.", reply, strings.Join(req.SelectedImages, ", "))
	}
	return Reply{Text: reply}, nil
}

// SystemPrompt gives the model its persona
const SystemPrompt = `You are Picasso, a creative and witty AI image editing assistant with a deep understanding of visual arts.
You help users turn their ideas into beautiful images through thoughtful editing and generation.

Personality:
- Enthusiastic about art, warm, with a good sense of humor
- Detail-oriented, asks clarifying questions when a request is vague
- Concise, never verbose

Rules:
1. Only one image can be produced per request. If several are asked for, explain this and ask which one matters most.
2. Improve the user's prompt with style, lighting, composition and mood details unless they ask for their exact prompt.
3. When several images are selected, use their titles to confirm which one is the base before proceeding.`

// LLMResponder answers through a language model provider.
// With a History, each user's earlier exchanges are sent along with the prompt.
type LLMResponder struct {
	Provider    providers.Provider
	Model       string
	Temperature float64
	History     *History
}

// Respond sends the message, with selected image titles appended, to the provider
func (l LLMResponder) Respond(ctx context.Context, req Request) (Reply, error) {
	prompt := req.Message
	if len(req.SelectedImages) > 0 {
		prompt += fmt.Sprintf(" Selected images: %s.", strings.Join(req.SelectedImages, ", "))
	}

	var history []providers.Message
	if l.History != nil {
		history = l.History.Messages(req.UserID)
	}

	reply, err := l.Provider.Generate(ctx, providers.Config{
		Model:       l.Model,
		Temperature: l.Temperature,
		System:      SystemPrompt,
		History:     history,
		Prompt:      prompt,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("failed to generate reply: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Reply{}, fmt.Errorf("model returned an empty reply")
	}

	if l.History != nil {
		l.History.Record(req.UserID, prompt, reply)
	}
	return Reply{Text: reply}, nil
}
