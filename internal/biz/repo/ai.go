package repo

import "context"

// AIRepo is the completion surface of the AI provider. Prompt construction
// and output validation live in the usecase layer; this interface only moves
// text.
type AIRepo interface {
	// Complete sends a system/user prompt pair and returns the raw
	// completion text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// CompleteJSON is Complete with the provider forced into JSON-object
	// output mode.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
