package router

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Rewritten prompts shorter than this are treated as a failed rewrite and
// the original prompt is used instead.
const minOptimizedLength = 20

// subjectConstraints lists elements the rewriter must steer the image
// model away from, per subject area.
var subjectConstraints = map[string]string{
	"math":      "no incorrect formulas, no jumbled mathematical symbols",
	"physics":   "no wrong circuit diagrams, no impossible force arrows",
	"chemistry": "no mislabeled molecules, no unsafe lab depictions",
	"biology":   "no anatomically wrong organs, no mislabeled structures",
	"geography": "no distorted maps, no wrong country borders",
	"history":   "no anachronistic objects, no modern items in period scenes",
}

const defaultConstraint = "no garbled text, no watermarks, no distorted hands or faces"

// BuildOptimizeRequest builds the chat body that asks a language-only
// model to rewrite a raw prompt into a richer image description.
func BuildOptimizeRequest(optimizeModel, prompt, subject, targetModel string) ([]byte, error) {
	constraint, ok := subjectConstraints[strings.ToLower(subject)]
	if !ok {
		constraint = defaultConstraint
	}

	system := fmt.Sprintf(
		"You rewrite short image prompts into rich, concrete visual descriptions for the %s image model. "+
			"Reply with the rewritten prompt only, no commentary, no markdown. Constraints: %s.",
		targetModel, constraint)

	body := chatCompletionBody{
		Model: optimizeModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		N: 1,
	}

	return json.Marshal(body)
}

// CleanOptimized extracts the rewritten prompt from the rewriter's reply.
// Strips any image markup the model echoed back and falls back to the
// original prompt when the rewrite is empty or implausibly short.
func CleanOptimized(respBody []byte, original string) string {
	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Choices) == 0 {
		return original
	}

	rewritten := strings.TrimSpace(StripImageMarkup(resp.Choices[0].Message.Content))
	if len(rewritten) < minOptimizedLength {
		return original
	}

	return rewritten
}
