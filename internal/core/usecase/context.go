package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

const sourceBlockSeparator = "\n\n"

// ContextBudgeter assembles the prompt context as a deterministic,
// budget-respecting prefix of the ranked list: passages are taken in rank
// order until the next block would exceed the character budget, and every
// passage either fully fits or is dropped along with everything after it.
// The first passage is always included so a grounded decision can never turn
// into an empty context.
type ContextBudgeter struct {
	charBudget int
}

func NewContextBudgeter(charBudget int) *ContextBudgeter {
	if charBudget <= 0 {
		charBudget = 4000
	}
	return &ContextBudgeter{charBudget: charBudget}
}

func (b *ContextBudgeter) Assemble(ranked domain.RankedResult) domain.AssembledContext {
	if ranked.Empty() {
		return domain.AssembledContext{}
	}

	var prompt strings.Builder
	retained := make([]domain.ScoredCandidate, 0, len(ranked))
	total := 0

	for i, candidate := range ranked {
		block := formatSourceBlock(i+1, candidate)
		cost := len(block)
		if len(retained) > 0 {
			cost += len(sourceBlockSeparator)
		}
		if len(retained) > 0 && total+cost > b.charBudget {
			break
		}

		if len(retained) > 0 {
			prompt.WriteString(sourceBlockSeparator)
		}
		prompt.WriteString(block)
		total += cost
		retained = append(retained, candidate)
	}

	return domain.AssembledContext{
		Prompt:   prompt.String(),
		Retained: retained,
	}
}

func formatSourceBlock(n int, candidate domain.ScoredCandidate) string {
	page := "unknown"
	if candidate.Passage.PageNumber > 0 {
		page = fmt.Sprintf("%d", candidate.Passage.PageNumber)
	}
	title := candidate.Passage.Filename
	if title == "" {
		title = candidate.Passage.DocumentID
	}
	return fmt.Sprintf(
		"Source %d (from %s, page %s, relevance: %.2f):\n%s",
		n, title, page, candidate.Effective(), candidate.Passage.Text,
	)
}
