package news

import (
	"fmt"
	"strings"
)

// BuildInstruction composes the curation instruction: a deterministic prompt
// from a deterministic candidate list. The completion call is the only
// non-deterministic step after this point, so tests assert on this text.
func BuildInstruction(topic string, candidates []Candidate, maxItems, charBudget int) string {
	var b strings.Builder

	framing := fmt.Sprintf("as notícias mais importantes sobre %q", topic)
	if topic == "" {
		framing = "as notícias mais urgentes do momento"
	}

	b.WriteString("Você é um curador de notícias brasileiro.\n")
	fmt.Fprintf(&b, "A partir da lista de candidatas abaixo, selecione %s.\n\n", framing)

	b.WriteString("CANDIDATAS (fonte|título|link):\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "%s|%s|%s\n", c.Source, c.Title, c.Link)
	}

	b.WriteString("\nREGRAS:\n")
	fmt.Fprintf(&b, "- Liste no máximo %d itens, um por linha, no formato: título — link.\n", maxItems)
	b.WriteString("- Não escreva resumos, comentários ou qualquer texto além de título e link.\n")
	fmt.Fprintf(&b, "- A resposta inteira deve ter no máximo %d caracteres.\n", charBudget)
	b.WriteString("- Priorize as fontes general e sports sobre as demais.\n")
	b.WriteString("- Elimine candidatas com títulos ou assuntos quase idênticos, mantendo uma só.\n")
	b.WriteString("- Use os links exatamente como estão na lista.\n")

	return b.String()
}
