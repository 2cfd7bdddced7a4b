// Package analyze turns documents into structured human-rights analyses
// using a text-generation backend.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/hrintel/internal/detect"
	"github.com/ppiankov/hrintel/internal/llm"
	"github.com/ppiankov/hrintel/internal/model"
)

var (
	// ErrNoProvider means no backend is configured
	ErrNoProvider = errors.New("no text-generation provider configured")

	// ErrUpstream covers network, auth, rate-limit and timeout failures
	ErrUpstream = errors.New("text-generation backend failed")

	// ErrParse means the backend answered without a usable JSON object
	ErrParse = errors.New("unparseable backend response")
)

// Analyzer builds prompts, calls the backend once per document and parses
// the reply. It holds only configuration and is safe for concurrent use.
type Analyzer struct {
	provider llm.Provider
	detector *detect.Detector
	log      logrus.FieldLogger

	model         string
	timeout       time.Duration
	maxRunes      int
	formatTokens  int
	genericTokens int
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used for degraded results
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithDetector replaces the default detector
func WithDetector(d *detect.Detector) Option {
	return func(a *Analyzer) {
		if d != nil {
			a.detector = d
		}
	}
}

// WithModel overrides the provider's model
func WithModel(name string) Option {
	return func(a *Analyzer) { a.model = name }
}

// WithTimeout bounds each backend call
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithConfig applies analysis settings; zero values keep the defaults
func WithConfig(cfg model.AnalysisConfig) Option {
	return func(a *Analyzer) {
		if cfg.Timeout > 0 {
			a.timeout = cfg.Timeout
		}
		if cfg.MaxContentChars > 0 {
			a.maxRunes = cfg.MaxContentChars
		}
		if cfg.FormatAwareTokens > 0 {
			a.formatTokens = cfg.FormatAwareTokens
		}
		if cfg.GenericTokens > 0 {
			a.genericTokens = cfg.GenericTokens
		}
	}
}

// New creates an analyzer. A nil provider is allowed: every analysis then
// degrades with ErrNoProvider.
func New(provider llm.Provider, opts ...Option) *Analyzer {
	defaults := model.DefaultConfig().Analysis
	a := &Analyzer{
		provider:      provider,
		log:           logrus.StandardLogger(),
		timeout:       defaults.Timeout,
		maxRunes:      defaults.MaxContentChars,
		formatTokens:  defaults.FormatAwareTokens,
		genericTokens: defaults.GenericTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.detector == nil {
		a.detector = detect.NewDetector(a.log)
	}
	return a
}

// Report is the full outcome of one analysis
type Report struct {
	Result     model.AnalysisResult
	Format     model.DocumentFormat // "" when detection found nothing
	Model      string
	TokensUsed int
	Duration   time.Duration
	Err        error // nil unless Result is degraded
}

// Run detects the document format and analyzes the document on the
// matching path. The returned Result is always well formed.
func (a *Analyzer) Run(ctx context.Context, doc model.Document) Report {
	detected := a.detector.Detect(doc.Content)

	var report Report
	if detected != nil && detected.Format.IsKnown() {
		report = a.runDetected(ctx, detected)
	} else {
		report = a.runGeneric(ctx, doc)
	}
	if detected != nil {
		report.Format = detected.Format
	}
	return report
}

// Analyze never fails; failures yield the degraded empty analysis
func (a *Analyzer) Analyze(ctx context.Context, doc model.Document) model.AnalysisResult {
	return a.Run(ctx, doc).Result
}

// AnalyzeWithError is Analyze plus the reason a result was degraded.
// The result is the degraded default whenever err is non-nil.
func (a *Analyzer) AnalyzeWithError(ctx context.Context, doc model.Document) (model.AnalysisResult, error) {
	r := a.Run(ctx, doc)
	return r.Result, r.Err
}

// AnalyzeDetected analyzes a document whose format is already known.
// A nil or unknown-format document takes the generic path.
func (a *Analyzer) AnalyzeDetected(ctx context.Context, doc *model.DetectedDocument) model.AnalysisResult {
	if doc == nil {
		return a.runGeneric(ctx, model.Document{}).Result
	}
	if !doc.Format.IsKnown() {
		return a.runGeneric(ctx, model.Document{Content: doc.RawContent}).Result
	}
	return a.runDetected(ctx, doc).Result
}

// AnalyzeDocument analyzes a document without format detection
func (a *Analyzer) AnalyzeDocument(ctx context.Context, doc model.Document) model.AnalysisResult {
	return a.RunGeneric(ctx, doc).Result
}

// RunGeneric is Run without format detection: the generic prompt is used
// whatever the content.
func (a *Analyzer) RunGeneric(ctx context.Context, doc model.Document) Report {
	return a.runGeneric(ctx, doc)
}

func (a *Analyzer) runDetected(ctx context.Context, doc *model.DetectedDocument) Report {
	prompt := formatPrompt(doc, a.maxRunes)
	return a.complete(ctx, prompt, a.formatTokens, logrus.Fields{"path": "format", "format": doc.Format})
}

func (a *Analyzer) runGeneric(ctx context.Context, doc model.Document) Report {
	prompt := genericPrompt(doc, a.maxRunes)
	return a.complete(ctx, prompt, a.genericTokens, logrus.Fields{"path": "generic", "title": doc.Title})
}

// complete runs one backend call and maps every failure to the degraded
// default. This is the only place errors are turned into results.
func (a *Analyzer) complete(ctx context.Context, prompt string, maxTokens int, fields logrus.Fields) Report {
	start := time.Now()
	result, resp, err := a.generate(ctx, prompt, maxTokens)

	report := Report{Duration: time.Since(start)}
	if resp != nil {
		report.Model = resp.Model
		report.TokensUsed = resp.TokensUsed
	}

	if err != nil {
		a.log.WithFields(fields).WithError(err).WithField("duration", report.Duration).Warn("document analysis degraded")
		report.Result = model.EmptyAnalysis()
		report.Err = err
		return report
	}

	a.log.WithFields(fields).WithFields(logrus.Fields{
		"model":    report.Model,
		"tokens":   report.TokensUsed,
		"duration": report.Duration,
	}).Debug("document analyzed")
	report.Result = result
	return report
}

type generation struct {
	resp *llm.GenerateResponse
	err  error
}

func (a *Analyzer) generate(ctx context.Context, prompt string, maxTokens int) (model.AnalysisResult, *llm.GenerateResponse, error) {
	if a.provider == nil {
		return model.AnalysisResult{}, nil, ErrNoProvider
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// The call runs in its own goroutine so the deadline holds even for a
	// backend that ignores ctx.
	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		resp, err := a.provider.Generate(ctx, llm.GenerateRequest{
			Prompt:    prompt,
			Model:     a.model,
			MaxTokens: maxTokens,
		})
		done <- generation{resp: resp, err: err}
	}()

	var g generation
	select {
	case g = <-done:
	case <-ctx.Done():
		return model.AnalysisResult{}, nil, fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
	}

	if g.err != nil {
		return model.AnalysisResult{}, nil, fmt.Errorf("%w: %s: %w", ErrUpstream, a.provider.Name(), g.err)
	}
	if g.resp == nil {
		return model.AnalysisResult{}, nil, fmt.Errorf("%w: %s returned no response", ErrUpstream, a.provider.Name())
	}

	result, err := ParseResponse(g.resp.Text)
	if err != nil {
		return model.AnalysisResult{}, g.resp, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return result, g.resp, nil
}
