package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/domain"
)

// SupportedLanguages are the UI languages the assistant answers in.
var SupportedLanguages = []string{"en", "hi", "mr", "te"}

const assistantInstruction = "You are a helpful real estate assistant for the Indian property market. " +
	"Answer questions about buying, selling and renting property, prices, localities, " +
	"documentation and home loans. Keep answers short and practical.\n\nUser: "

// AssistantService wires translation, transcription and the chat model.
type AssistantService struct {
	tr    domain.Translator
	stt   domain.Transcriber
	model domain.ChatModel
}

func NewAssistantService(tr domain.Translator, stt domain.Transcriber, model domain.ChatModel) *AssistantService {
	return &AssistantService{tr: tr, stt: stt, model: model}
}

// ChatReply is the answer to one chat prompt.
type ChatReply struct {
	Reply          string `json:"reply"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

// Chat translates the prompt to English if needed, asks the model and
// translates the answer into the target language.
func (s *AssistantService) Chat(ctx context.Context, prompt, source, target string) (ChatReply, error) {
	source, target = orLang(source), orLang(target)
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ChatReply{}, fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}

	english, err := s.Translate(ctx, prompt, source, "en")
	if err != nil {
		return ChatReply{}, err
	}
	answer, err := s.model.Generate(ctx, assistantInstruction+english)
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat model: %w", err)
	}
	reply, err := s.Translate(ctx, answer, "en", target)
	if err != nil {
		// an untranslated answer beats no answer
		log.Warn().Err(err).Str("component", "assistant").Str("target", target).Msg("reply translation failed")
		reply = answer
	}
	return ChatReply{Reply: reply, SourceLanguage: source, TargetLanguage: target}, nil
}

// Translate short-circuits when both languages are the same.
func (s *AssistantService) Translate(ctx context.Context, text, source, target string) (string, error) {
	source, target = orLang(source), orLang(target)
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}
	return s.tr.Translate(ctx, text, source, target)
}

// LiveTranslation is the result of translating spoken or typed input.
type LiveTranslation struct {
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	Translation    string `json:"translation"`
	TargetLanguage string `json:"targetLanguage"`
}

// LiveTranslate transcribes audioURL when it is a URL, otherwise treats the
// input as text, then translates it.
func (s *AssistantService) LiveTranslate(ctx context.Context, text, audioURL, source, target string) (LiveTranslation, error) {
	target = orLang(target)
	original := strings.TrimSpace(text)
	if original == "" {
		a := strings.TrimSpace(audioURL)
		if isURL(a) {
			t, err := s.stt.Transcribe(ctx, a)
			if err != nil {
				return LiveTranslation{}, err
			}
			original = t
		} else {
			original = a
		}
	}
	if original == "" {
		return LiveTranslation{}, fmt.Errorf("%w: text or audioUrl is required", domain.ErrInvalidInput)
	}

	out, err := s.Translate(ctx, original, source, target)
	if err != nil {
		return LiveTranslation{}, err
	}
	return LiveTranslation{OriginalText: original, TranslatedText: out, Translation: out, TargetLanguage: target}, nil
}

// Transcribe accepts either a reachable audio URL or raw audio bytes.
func (s *AssistantService) Transcribe(ctx context.Context, audioURL string, audio []byte) (string, error) {
	if audioURL == "" {
		if len(audio) == 0 {
			return "", fmt.Errorf("%w: audio is required", domain.ErrInvalidInput)
		}
		u, err := s.stt.Upload(ctx, audio)
		if err != nil {
			return "", err
		}
		audioURL = u
	}
	return s.stt.Transcribe(ctx, audioURL)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func orLang(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	if l == "" {
		return "en"
	}
	return l
}

// IsSupportedLanguage reports whether l is one of SupportedLanguages.
func IsSupportedLanguage(l string) bool {
	l = orLang(l)
	for _, s := range SupportedLanguages {
		if s == l {
			return true
		}
	}
	return false
}
