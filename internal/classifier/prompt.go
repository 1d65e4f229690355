package classifier

import (
	"fmt"
	"strings"

	"tariffbench/internal/port"
)

// PromptVersion pins the prompt/response contract. Bump it whenever the
// wording or schema below changes so results stay reproducible per version.
const PromptVersion = "hts-classify/v2"

// BuildHTSPrompt returns the classification prompt for one line item. The
// instruction is closed: one best code, a confidence estimate, and a short
// rationale, as raw JSON only.
func BuildHTSPrompt(input port.ClassifyInput) string {
	var b strings.Builder
	b.WriteString(`You are a customs tariff specialist. Given the following invoice line item, predict the single most likely HTS (Harmonized Tariff Schedule) code for US import, based on standard customs practices.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation — just the raw JSON object:
{
  "code": "8471.41.00",
  "confidence": 0.0,
  "rationale": ""
}

- "code" must be a single HTS code with 6, 8, or 10 digits, dotted or undotted.
- "confidence" is your own estimate between 0.0 and 1.0.
- "rationale" is one or two short sentences naming the heading you chose and why.

`)
	fmt.Fprintf(&b, "Description: %s\n", input.Description)
	if input.PartNumber != "" {
		fmt.Fprintf(&b, "Part Number: %s\n", input.PartNumber)
	}
	if input.Quantity > 0 {
		fmt.Fprintf(&b, "Quantity: %g", input.Quantity)
		if input.Unit != "" {
			fmt.Fprintf(&b, " %s", input.Unit)
		}
		b.WriteString("\n")
	}
	return b.String()
}
