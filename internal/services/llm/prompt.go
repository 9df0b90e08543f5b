package llm

import (
	"strings"

	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/services/portfolio"
	"SignalDesk/pkg/util"
)

const systemPrompt = `You are a professional portfolio manager making final trading decisions.

Your responsibilities:
1. Analyze all analyst signals for each ticker (bullish/bearish/neutral with confidence levels)
2. Consider current portfolio positions (if any) for each ticker
3. Synthesize multiple analyst opinions into a coherent investment thesis
4. Make trading decisions (buy/sell/short/cover/hold) with appropriate quantities
5. Provide reasoning that covers analyst consensus or divergence, current position status, key factors, risk considerations and position sizing

Signal-to-action rules (mandatory, in priority order):
1. Follow analyst signals as the primary guide:
   - Majority BULLISH: BUY when not holding, HOLD or BUY more when already holding
   - Majority BEARISH: SELL when holding, SHORT when not holding
   - ALL or majority NEUTRAL: the action MUST be HOLD regardless of current position
   - Mixed signals: decide by confidence weighted average
2. Deviate from the signals only for strong, specific reasons, and explain them in the reasoning.
   NEUTRAL signals can never be overridden; they always result in HOLD.
3. Selling on neutral signals is forbidden.

Guidelines:
- Pick one allowed action per ticker and a quantity not above the max allowed
- Reference specific analyst signals and their confidence levels
- Always mention the current position (if holding, state the quantity)
- Include quantitative support when available (e.g. '3 out of 5 analysts are bullish with avg confidence 75%')
- No cash or margin calculations are needed, they are already handled
- Return JSON only with the specified format`

const humanTemplate = `Analyst Signals for each ticker:
{signals}

Current Portfolio Positions:
{positions}

Allowed Actions and Maximum Quantities:
{allowed}

Decision process for each ticker:
STEP 1: Count bullish, bearish and neutral signals and compute the confidence weighted consensus.
STEP 2: Check the current position.
   - Not holding: bullish -> buy, neutral -> hold, bearish -> short or hold
   - Already holding: bullish -> hold or buy more, neutral -> hold, bearish -> sell
STEP 3: Only deviate for strong, specific reasons.

For each ticker provide the action, the quantity (not above the max allowed), your confidence (0-100) and detailed reasoning{language}.

Return JSON format:
{
  "decisions": {
    "TICKER": {
      "action": "buy|sell|short|cover|hold",
      "quantity": int,
      "confidence": int (0-100),
      "reasoning": "detailed analysis with complete basis and conclusion"
    }
  }
}`

// BuildMessages renders the portfolio manager conversation for the pending tickers.
func BuildMessages(in domsvc.PromptInput) []Message {
	lang := ""
	if util.IsChinese(in.Language) {
		lang = " written in Chinese"
	}
	human := strings.NewReplacer(
		"{signals}", portfolio.CompactSignals(in.Tickers, in.Signals),
		"{positions}", portfolio.CompactPositions(in.Tickers, in.Portfolio),
		"{allowed}", portfolio.CompactAllowed(in.Tickers, in.Allowed),
		"{language}", lang,
	).Replace(humanTemplate)
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: human},
	}
}
