package openai

import (
	"fmt"

	"github.com/poiesic/placerank/ai"
)

const fillMaskResponseSchema = `{
  "type": "object",
  "properties": {
    "fillers": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "token": {"type": "string", "pattern": "^[a-z]+$"},
          "score": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["token", "score"]
      }
    }
  },
  "required": ["fillers"]
}`

// buildFillMaskPrompt asks the model to behave like a masked language model.
func buildFillMaskPrompt(k int) string {
	return fmt.Sprintf(`You are a masked language model. The user sends one sentence containing the token %s.
Propose the %d single English words most likely to replace %s in that sentence, most probable first.
Rules:
- each proposal is exactly one lower-case word made of letters only
- never repeat a word
- score is your probability estimate for that word, between 0 and 1
- do not explain, answer with JSON only

Respond with JSON matching this schema:
%s`, ai.MaskToken, k, ai.MaskToken, fillMaskResponseSchema)
}
