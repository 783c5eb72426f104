package domain

import "time"

// Model is registry metadata for a rendering checkpoint: which workflow
// template it drives and the prompt fragments prepended to every request.
type Model struct {
	Name           string    `db:"model_name"`
	Checkpoint     string    `db:"checkpoint"`
	TemplateName   string    `db:"template_name"`
	PromptPrefix   string    `db:"prompt_prefix"`
	NegativePrompt string    `db:"negative_prompt"`
	DefaultParams  string    `db:"default_params"` // JSON object merged under request params
	CreatedAt      time.Time `db:"created_at"`
}
