package verifier

import (
	"context"
	"strings"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/prompt"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/utils"
)

// Verifier checks a draft against its support items. A broken verifier must
// not block answers, so every failure mode is a pass.
type Verifier struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewVerifier(provider llm.LLMProvider, log logger.ILogger) *Verifier {
	return &Verifier{llm: provider, logger: log}
}

type verdictReply struct {
	Verdict     string   `json:"verdict"`
	Unsupported []string `json:"unsupported"`
}

func (v *Verifier) Verify(ctx context.Context, draft store.DraftAnswer) store.VerificationResult {
	reply, err := v.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.VerifySystem},
		{Role: llm.RoleUser, Content: prompt.VerifyUser(draft)},
	}, llm.WithStage(rag.StageVerify), llm.WithTemperature(0))
	if err != nil {
		v.logger.Warn("Verifier", "Verification call failed, passing draft", map[string]interface{}{"error": err.Error()})
		return store.VerificationResult{Passed: true}
	}

	parsed, err := utils.DecodeJSON[verdictReply](reply)
	if err != nil {
		v.logger.Warn("Verifier", "Unparsable verdict, passing draft", map[string]interface{}{"reply": utils.Truncate(reply, 200)})
		return store.VerificationResult{Passed: true}
	}

	if strings.EqualFold(strings.TrimSpace(parsed.Verdict), "fail") {
		var claims []string
		for _, c := range parsed.Unsupported {
			if c = strings.TrimSpace(c); c != "" {
				claims = append(claims, c)
			}
		}
		v.logger.Info("Verifier", "Draft failed verification", map[string]interface{}{"unsupported": len(claims)})
		return store.VerificationResult{Passed: false, Unsupported: claims}
	}
	return store.VerificationResult{Passed: true}
}
