package metrics

// TokenUsage captures the token counts spent on a responder call. Completion
// counts are only known to providers that report them.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// PromptOnly builds usage for a prompt whose completion size is unknown.
func PromptOnly(promptTokens int) *TokenUsage {
	if promptTokens <= 0 {
		return nil
	}
	return &TokenUsage{PromptTokens: promptTokens, TotalTokens: promptTokens}
}
