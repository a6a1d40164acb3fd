package rag

import "strings"

// promptTemplate is the grounding prompt. CONTEXT is the concatenated
// retrieved documentation; QUESTION is the user's text verbatim.
const promptTemplate = `You are 'Helpmate,' a friendly and expert support agent for Streamlit.
Using the following CONTEXT from the official documentation, please provide a clear and helpful answer to the user's QUESTION.
If the context is not sufficient, say that you don't have enough information to answer. Do not make up information.

CONTEXT:
%CONTEXT%

QUESTION:
%QUESTION%

ANSWER:
`

// contextSeparator joins retrieved chunks inside the CONTEXT block.
const contextSeparator = "\n\n"

// BuildPrompt renders the grounding prompt from retrieved chunk texts and
// the question. The question is inserted verbatim; retrieved chunks are
// joined in relevance order.
func BuildPrompt(contexts []string, question string) string {
	prompt := strings.Replace(promptTemplate, "%CONTEXT%", strings.Join(contexts, contextSeparator), 1)
	return strings.Replace(prompt, "%QUESTION%", question, 1)
}
