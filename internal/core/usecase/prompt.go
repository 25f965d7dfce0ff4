package usecase

import (
	"fmt"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

const answerSystemPrompt = `You are a document assistant. Answer questions using the provided document content only.

Instructions:
- Use only information from the provided document content.
- Extract and provide specific numbers, scores, ratings and values when asked.
- If the information is not in the content, say so clearly.
- Focus on the intent of the question rather than its exact wording.
- IMPORTANT: Reply in the SAME LANGUAGE as the user's question.`

func buildUserPrompt(query domain.Query, contextPrompt string) string {
	return fmt.Sprintf(`Question (answer in %s): %s

Answer this question using the information from the document content below. Look for specific numbers, scores and values.

Document Content:
%s`,
		domain.LanguageName(query.Language),
		query.Raw,
		contextPrompt,
	)
}
