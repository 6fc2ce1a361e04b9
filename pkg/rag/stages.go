package rag

// Stage names tag every Gateway call for logs, spans and scripted test providers.
const (
	StageClarify    = "clarify"
	StageMerge      = "merge"
	StageGrade      = "grade"
	StageSynthesize = "synthesize"
	StageVerify     = "verify"
	StageRephrase   = "rephrase"
	StageExactMatch = "exact_match"
)
