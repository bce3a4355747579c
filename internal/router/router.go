package router

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// EndpointKind selects the protocol shape used for a target model.
type EndpointKind int

const (
	KindImageGeneration EndpointKind = iota
	KindChatCompletion
)

// Built-in chat-only detection: the gemini image family and its nano-banana
// alias only expose a conversational endpoint. Config can extend the list.
var defaultChatOnlyPattern = regexp.MustCompile(`(?i)(gemini-[\w.-]+-image|nano-banana)`)

// GenerateRequest carries one image request through the router. Immutable;
// per-request overrides live here instead of being patched into shared
// config.
type GenerateRequest struct {
	Prompt          string
	Model           string
	Size            string
	Quality         string
	ReferenceImages []string
}

// Route is a prepared provider call: which endpoint to hit and the exact
// body to post.
type Route struct {
	Kind     EndpointKind
	Endpoint string
	Body     []byte
}

// Router decides, per target model, which endpoint shape to call, how to
// build the request body, and how to pull an image reference out of the
// response. All per-model special-casing lives here and nowhere else.
type Router struct {
	extractor      ImageExtractor
	chatOnlyModels []string
}

func New(chatOnlyModels []string) *Router {
	return &Router{
		extractor:      MarkdownExtractor{},
		chatOnlyModels: chatOnlyModels,
	}
}

// WithExtractor swaps the reply-text extraction strategy.
func (r *Router) WithExtractor(extractor ImageExtractor) *Router {
	r.extractor = extractor
	return r
}

// IsChatOnly reports whether the model only exposes a chat endpoint.
func (r *Router) IsChatOnly(model string) bool {
	for _, m := range r.chatOnlyModels {
		if m == model {
			return true
		}
	}
	return defaultChatOnlyPattern.MatchString(model)
}

// Build constructs the provider call for one request.
func (r *Router) Build(req GenerateRequest) (Route, error) {
	if r.IsChatOnly(req.Model) || len(req.ReferenceImages) > 0 {
		return r.buildChat(req)
	}
	return r.buildImageGeneration(req)
}

func (r *Router) buildImageGeneration(req GenerateRequest) (Route, error) {
	body := imageGenerationBody{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              1,
		Size:           req.Size,
		ResponseFormat: "url",
	}
	applyModelQuirks(&body)

	data, err := json.Marshal(body)
	if err != nil {
		return Route{}, err
	}

	return Route{Kind: KindImageGeneration, Endpoint: ImagesEndpoint, Body: data}, nil
}

func (r *Router) buildChat(req GenerateRequest) (Route, error) {
	prompt := req.Prompt

	// Chat-only models take stylistic cues as text rather than structured
	// parameters.
	if hint := aspectRatioHint(req.Size); hint != "" {
		prompt += ", aspect ratio " + hint
	}
	if hint := detailHint(req.Quality); hint != "" {
		prompt += ", " + hint
	}

	var message chatMessage
	if len(req.ReferenceImages) > 0 {
		parts := []contentPart{{Type: "text", Text: prompt}}
		for _, path := range req.ReferenceImages {
			dataURI, err := encodeReferenceImage(path)
			if err != nil {
				return Route{}, fmt.Errorf("failed to read reference image %s: %w", path, err)
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURLPart{URL: dataURI}})
		}
		message = chatMessage{Role: "user", Content: parts}
	} else {
		message = chatMessage{Role: "user", Content: prompt}
	}

	body := chatCompletionBody{
		Model:    req.Model,
		Messages: []chatMessage{message},
		N:        1,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Route{}, err
	}

	return Route{Kind: KindChatCompletion, Endpoint: ChatEndpoint, Body: data}, nil
}

// Extract pulls the image reference (URL or inline data) out of a
// successful provider response for the given route kind.
func (r *Router) Extract(kind EndpointKind, respBody []byte) (string, error) {
	switch kind {
	case KindImageGeneration:
		var resp imagesResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return "", fmt.Errorf("failed to parse images response: %w", err)
		}
		if len(resp.Data) == 0 {
			return "", fmt.Errorf("images response carried no data")
		}
		if resp.Data[0].URL != "" {
			return resp.Data[0].URL, nil
		}
		if resp.Data[0].B64JSON != "" {
			return "data:image/png;base64," + resp.Data[0].B64JSON, nil
		}
		return "", fmt.Errorf("images response entry carried neither url nor b64_json")

	case KindChatCompletion:
		var resp chatResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return "", fmt.Errorf("failed to parse chat response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat response carried no choices")
		}
		content := resp.Choices[0].Message.Content
		if ref, ok := r.extractor.Extract(content); ok {
			return ref, nil
		}
		// Best-effort fallback: some replies carry a bare URL or
		// description instead of a markdown link.
		return strings.TrimSpace(content), nil

	default:
		return "", fmt.Errorf("unknown endpoint kind %d", kind)
	}
}

// applyModelQuirks sets extra body fields certain models require. This is
// the single place such special-casing is allowed.
func applyModelQuirks(body *imageGenerationBody) {
	if strings.HasPrefix(body.Model, "wan") {
		off := false
		on := true
		body.Watermark = &off
		body.PromptExtend = &on
	}
}

// aspectRatioHint maps a WxH size string onto the nearest common ratio.
func aspectRatioHint(size string) string {
	parts := strings.SplitN(size, "x", 2)
	if len(parts) != 2 {
		return ""
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return ""
	}

	ratio := float64(w) / float64(h)
	switch {
	case ratio > 1.6:
		return "16:9"
	case ratio > 1.15:
		return "4:3"
	case ratio > 0.87:
		return "1:1"
	case ratio > 0.62:
		return "3:4"
	default:
		return "9:16"
	}
}

func detailHint(quality string) string {
	switch quality {
	case "hd", "high":
		return "highly detailed, high resolution"
	default:
		return ""
	}
}

func encodeReferenceImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	mime := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".webp":
		mime = "image/webp"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
