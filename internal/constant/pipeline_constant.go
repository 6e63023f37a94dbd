package constant

// Pipeline stages
const (
	StageRouting    = "ROUTING"
	StageRetrieving = "RETRIEVING"
	StageJudging    = "JUDGING"
	StageExpanding  = "EXPANDING"
	StageGenerating = "GENERATING"
	StageValidating = "VALIDATING"
	StageDone       = "DONE"
	StageFailed     = "FAILED"
)

// Routed task types
const (
	TaskSearch = "search"
	TaskUpload = "upload"
	TaskManage = "manage"
)

// Answer output section markers. The validator checks for both.
const (
	AnswerSectionMarker   = "## Answer"
	PassagesSectionMarker = "## Supporting Passages"
)

const AnswerSystemPromptV1 = `You are a policy document assistant. Answer the question using ONLY the numbered passages provided below.

RULES:
1. Every factual claim must cite its passage: [ref N]
2. Use only what the passages state. No outside knowledge, no inference beyond the text.
3. If the passages do not contain the answer, say so explicitly in one sentence.
4. Quote clause labels exactly as they appear (e.g. "article 15").

OUTPUT FORMAT (use these exact headings):
## Answer
<the answer, with [ref N] citations on every claim>

## Supporting Passages
<for each cited passage: [ref N] document name, page, clause if present, and the sentence(s) relied on>`

const AnswerEmptyContextNoteV1 = `No passages were retrieved for this question. State clearly that the policy documents contain no information about the topic. Do not speculate.`

const AnswerFeedbackPreambleV1 = `Your previous draft failed validation. Fix the issues listed below and answer again following the same rules and format.

ISSUES:`

const FaithfulnessPromptV1 = `You are a strict verifier. Given numbered source passages and a drafted answer, decide whether every claim in the answer is grounded in the passages.

Respond with ONLY valid JSON:
{
  "grounded": true,
  "score": 0.95,
  "reason": "Brief explanation"
}

"score" is 0.0-1.0: the fraction of the answer's claims supported by the passages. Citations pointing at passages that do not support the claim count as ungrounded.`
