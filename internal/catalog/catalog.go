package catalog

import (
	"sort"
	"strings"

	"voicetype/internal/domain"
)

const (
	TranscribeFast     = "whisper-large-v3-turbo"
	TranscribeAccurate = "whisper-large-v3"

	// AssistantStyle answers the dictated request instead of rewriting it.
	AssistantStyle = "assistant"
	DefaultStyle   = "clean"
)

var transcriptionModels = []domain.ModelDescriptor{
	{ID: TranscribeFast, Label: "Whisper Large v3 Turbo", Priority: 0},
	{ID: TranscribeAccurate, Label: "Whisper Large v3", Priority: 1},
}

var enhancementModels = []domain.ModelDescriptor{
	{ID: "llama-3.3-70b-versatile", Label: "Llama 3.3 70B", Priority: 0},
	{ID: "openai/gpt-oss-120b", Label: "GPT-OSS 120B", Capabilities: domain.CapabilityLiveSearch, Priority: 1},
	{ID: "openai/gpt-oss-20b", Label: "GPT-OSS 20B", Capabilities: domain.CapabilityLiveSearch, Priority: 2},
	{ID: "qwen/qwen3-32b", Label: "Qwen3 32B", Capabilities: domain.CapabilityReasoning, Priority: 3},
	{ID: "llama-3.1-8b-instant", Label: "Llama 3.1 8B Instant", Priority: 4},
}

const sharedRules = " Reply with the resulting text only, without preamble, quotes or explanations."

var styles = []domain.Style{
	{
		ID:     "clean",
		Label:  "Clean",
		Prompt: "You clean up dictated text. Fix punctuation, capitalization and obvious transcription mistakes, remove filler words and false starts, and keep the speaker's wording and language." + sharedRules,
	},
	{
		ID:     "formal",
		Label:  "Formal",
		Prompt: "You rewrite dictated text in a formal, professional register. Keep the meaning and the language of the input." + sharedRules,
	},
	{
		ID:     "casual",
		Label:  "Casual",
		Prompt: "You rewrite dictated text in a relaxed, conversational tone suitable for chat. Keep the meaning and the language of the input." + sharedRules,
	},
	{
		ID:     "email",
		Label:  "Email",
		Prompt: "You turn dictated text into a well structured email body with greeting and closing. Keep the meaning and the language of the input." + sharedRules,
	},
	{
		ID:     "bullet",
		Label:  "Bullet points",
		Prompt: "You turn dictated text into a concise markdown bullet list, one idea per bullet. Keep the language of the input." + sharedRules,
	},
	{
		ID:     AssistantStyle,
		Label:  "Assistant",
		Prompt: "You are a helpful assistant. The user dictated a question or instruction; answer it directly and concisely in the language it was asked in. Use web search when the answer depends on current information." + sharedRules,
	},
}

// TranscriptionChain returns the fast model followed by the accurate one.
func TranscriptionChain() []domain.ModelDescriptor {
	return clone(transcriptionModels)
}

// EnhancementModels returns every known enhancement model in priority order.
func EnhancementModels() []domain.ModelDescriptor {
	return clone(enhancementModels)
}

// EnhancementChain selects the candidates tried for a configured model value.
// Empty or "auto" yields the whole table; a pinned id yields exactly one
// descriptor, synthesized without capabilities when the id is unknown.
func EnhancementChain(model string) []domain.ModelDescriptor {
	model = strings.TrimSpace(model)
	if model == "" || strings.EqualFold(model, "auto") {
		return EnhancementModels()
	}
	if descriptor, ok := LookupEnhancementModel(model); ok {
		return []domain.ModelDescriptor{descriptor}
	}
	return []domain.ModelDescriptor{{ID: model, Label: model}}
}

func LookupEnhancementModel(id string) (domain.ModelDescriptor, bool) {
	for _, descriptor := range enhancementModels {
		if descriptor.ID == id {
			return descriptor, true
		}
	}
	return domain.ModelDescriptor{}, false
}

// StyleFor resolves a style id, falling back to the clean style.
func StyleFor(id string) domain.Style {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, style := range styles {
		if style.ID == id {
			return style
		}
	}
	return styles[0]
}

func Styles() []domain.Style {
	out := make([]domain.Style, len(styles))
	copy(out, styles)
	return out
}

func clone(in []domain.ModelDescriptor) []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
