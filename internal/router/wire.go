package router

// Wire types for the two downstream endpoint shapes. The provider speaks
// the OpenAI-compatible protocol: a direct image endpoint returning
// {data:[{url}]}, and a chat endpoint returning {choices:[{message:{content}}]}
// where content may carry a markdown image link.

const (
	ImagesEndpoint = "/v1/images/generations"
	ChatEndpoint   = "/v1/chat/completions"
)

type imageGenerationBody struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`

	// Per-model quirks. Only set for models that understand them.
	Watermark    *bool `json:"watermark,omitempty"`
	PromptExtend *bool `json:"prompt_extend,omitempty"`
}

type chatCompletionBody struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	N        int           `json:"n"`
}

// Content is a plain string for text-only messages and a part list for
// multimodal messages carrying reference images.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type imagesResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
