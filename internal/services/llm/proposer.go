package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
	applogger "SignalDesk/pkg/logger"
)

// DefaultMaxRetries is the number of completion attempts before falling back.
const DefaultMaxRetries = 3

var errNoJSON = errors.New("no json object in response")

// Proposer asks a chat model for decisions and parses its answer.
// When every attempt fails it falls back to holding every ticker.
type Proposer struct {
	chat    Completer
	retries int
	log     *applogger.Logger
}

type ProposerOption func(*Proposer)

func WithMaxRetries(n int) ProposerOption {
	return func(p *Proposer) {
		if n > 0 {
			p.retries = n
		}
	}
}

func WithLogger(l *applogger.Logger) ProposerOption {
	return func(p *Proposer) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProposer(chat Completer, opts ...ProposerOption) *Proposer {
	p := &Proposer{chat: chat, retries: DefaultMaxRetries, log: applogger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultDecisions holds every ticker with zero confidence.
func DefaultDecisions(tickers []string) map[string]models.TradingDecision {
	out := make(map[string]models.TradingDecision, len(tickers))
	for _, t := range tickers {
		out[t] = models.DefaultHoldDecision()
	}
	return out
}

func (p *Proposer) Propose(ctx context.Context, in domsvc.PromptInput) (map[string]models.TradingDecision, error) {
	if len(in.Tickers) == 0 {
		return map[string]models.TradingDecision{}, nil
	}
	messages := BuildMessages(in)

	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := p.chat.Complete(ctx, messages)
		if err == nil {
			var decisions map[string]models.TradingDecision
			decisions, err = ParseDecisions(text)
			if err == nil {
				return decisions, nil
			}
		}
		lastErr = err
		p.log.Warn("llm attempt failed",
			applogger.Int("attempt", attempt),
			applogger.Int("max_attempts", p.retries),
			applogger.Error(err),
		)
	}
	p.log.Error("llm proposals unavailable, holding all tickers",
		applogger.Strings("tickers", in.Tickers),
		applogger.Error(lastErr),
	)
	return DefaultDecisions(in.Tickers), nil
}

type rawDecision struct {
	Action     string          `json:"action"`
	Quantity   json.RawMessage `json:"quantity"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// ParseDecisions decodes {"decisions": {ticker: decision}} from model output.
// Numbers may arrive as strings; quantities must be whole.
func ParseDecisions(text string) (map[string]models.TradingDecision, error) {
	body, ok := ExtractJSON(text)
	if !ok {
		return nil, errNoJSON
	}
	var envelope struct {
		Decisions map[string]rawDecision `json:"decisions"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}
	if envelope.Decisions == nil {
		return nil, fmt.Errorf("decode decisions: missing decisions object")
	}
	out := make(map[string]models.TradingDecision, len(envelope.Decisions))
	for ticker, raw := range envelope.Decisions {
		qty, err := number(raw.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%s quantity: %w", ticker, err)
		}
		if qty != math.Trunc(qty) {
			return nil, fmt.Errorf("%s quantity %v is not whole", ticker, qty)
		}
		conf, err := number(raw.Confidence)
		if err != nil {
			return nil, fmt.Errorf("%s confidence: %w", ticker, err)
		}
		out[ticker] = models.TradingDecision{
			Action:     models.Action(strings.ToLower(strings.TrimSpace(raw.Action))),
			Quantity:   int(qty),
			Confidence: conf,
			Reasoning:  raw.Reasoning,
		}
	}
	return out, nil
}

func number(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &v); err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

var _ domsvc.DecisionProposer = (*Proposer)(nil)
