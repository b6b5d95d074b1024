package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"transcripter/internal/fileutil"
	"transcripter/internal/jobs"
	"transcripter/internal/logging"
	"transcripter/internal/proxy"
	"transcripter/internal/services"
)

// Options configures a Machine.
type Options struct {
	URL         string
	Page        Page
	RetryBudget int
	Timings     Timings
	// LaunchesPerSecond paces Open calls across every attempt sharing the
	// machine. Zero disables pacing.
	LaunchesPerSecond float64
	Logger            *slog.Logger
}

// Machine runs attempts. It is safe for concurrent use.
type Machine struct {
	opener  Opener
	url     string
	page    Page
	budget  int
	timings Timings
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewMachine builds a machine opening sessions through opener.
func NewMachine(opener Opener, opts Options) *Machine {
	budget := opts.RetryBudget
	if budget <= 0 {
		budget = 3
	}
	page := opts.Page
	if page == (Page{}) {
		page = DefaultPage()
	}
	limit := rate.Inf
	if opts.LaunchesPerSecond > 0 && !math.IsInf(opts.LaunchesPerSecond, 1) {
		limit = rate.Limit(opts.LaunchesPerSecond)
	}
	return &Machine{
		opener:  opener,
		url:     opts.URL,
		page:    page,
		budget:  budget,
		timings: opts.Timings,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logging.NewComponentLogger(opts.Logger, "upload"),
	}
}

// Result describes one finished attempt.
type Result struct {
	Outcome     Outcome
	State       State
	Trace       []State
	RetriesUsed int
	Err         error
	Started     time.Time
	Finished    time.Time
}

type attempt struct {
	m       *Machine
	job     *jobs.Job
	via     proxy.Proxy
	logger  *slog.Logger
	result  Result
	session Session
}

// Attempt runs the full flow for job through via. It never panics on remote
// misbehaviour and always closes the session it opened.
func (m *Machine) Attempt(ctx context.Context, job *jobs.Job, via proxy.Proxy) Result {
	a := &attempt{
		m:      m,
		job:    job,
		via:    via,
		logger: logging.WithContext(ctx, m.logger),
		result: Result{Started: time.Now(), State: StateAwaitingUpload, Trace: []State{StateAwaitingUpload}},
	}
	a.run(ctx)
	a.result.Finished = time.Now()
	return a.result
}

func (a *attempt) run(ctx context.Context) {
	if a.job.Completed() {
		a.finish(Superseded, nil)
		return
	}
	if err := a.m.limiter.Wait(ctx); err != nil {
		a.finish(Cancelled, err)
		return
	}

	openCtx, cancel := context.WithTimeout(ctx, a.m.timings.openTimeout())
	session, err := a.m.opener.Open(openCtx, a.m.url, a.via)
	cancel()
	if err != nil {
		a.fail(ctx, services.Wrap(services.ErrUnreachable, "upload", "open page", a.via.ID(), services.Timeout(err)))
		return
	}
	a.session = session
	held := false
	// The session closes before the slot is released so the next holder
	// never overlaps with a still-open session for the same job.
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Debug("session close failed", logging.Error(err))
		}
		if held {
			a.job.Release()
		}
	}()

	if err := a.job.Acquire(ctx); err != nil {
		a.finish(Cancelled, err)
		return
	}
	held = true

	// Another attempt may have finished while this one waited for the slot.
	if a.job.Completed() {
		a.finish(Superseded, nil)
		return
	}

	if err := a.session.SubmitFile(ctx, a.job.SourcePath, a.m.timings.Click); err != nil {
		a.fail(ctx, services.Wrap(services.ErrUnreachable, "upload", "submit file", a.job.SourcePath, services.Timeout(err)))
		return
	}
	// The file only counts as submitted once the upload is confirmed.
	if !a.confirm(ctx) {
		a.fail(ctx, services.Wrap(services.ErrUnreachable, "upload", "confirm upload", "confirmation control missing", nil))
		return
	}
	a.transition(StateSubmitted)

	progress := a.evaluate(ctx)
	if ctx.Err() != nil {
		a.finish(Cancelled, ctx.Err())
		return
	}
	switch progress.State {
	case StateAborted:
		a.fail(ctx, services.Wrap(services.ErrChallenge, "upload", "evaluate", "bot challenge banner shown", nil))
		return
	case StateExhausted:
		a.fail(ctx, services.Wrap(services.ErrAutomation, "upload", "evaluate",
			"retry budget of "+strconv.Itoa(progress.Budget)+" exhausted", nil))
		return
	}

	markup, err := a.scrape(ctx)
	if err != nil {
		a.fail(ctx, services.Wrap(services.ErrAutomation, "upload", "scrape transcript", "", services.Timeout(err)))
		return
	}
	if err := fileutil.WriteFileAtomic(a.job.OutputPath, []byte(markup), 0o644); err != nil {
		a.fail(ctx, services.Wrap(services.ErrTransient, "upload", "write transcript", a.job.OutputPath, err))
		return
	}
	a.job.MarkCompleted()
	a.transition(StateDone)
	a.finish(Success, nil)
}

func (a *attempt) confirm(ctx context.Context) bool {
	el, ok := a.session.Locate(ctx, a.m.page.Confirm, a.m.timings.Click)
	if !ok {
		return false
	}
	return a.session.Click(ctx, el, a.m.timings.Click)
}

// evaluate runs probe rounds until the loop reaches a terminal progress state.
func (a *attempt) evaluate(ctx context.Context) Progress {
	progress := Progress{State: StateSubmitted, Budget: a.m.budget}
	for !progress.Terminal() {
		if ctx.Err() != nil {
			return progress
		}
		seen := a.observe(ctx)
		decision := Plan(seen.obs)
		acted := a.act(ctx, decision, seen)
		next := Apply(progress, decision, acted)

		a.logger.Debug("upload round",
			logging.String("seen", decision.Seen.String()),
			logging.String("action", decision.Action.String()),
			logging.Bool("acted", acted),
			logging.String(logging.FieldState, next.State.String()),
			logging.Int("retries_used", next.RetriesUsed),
		)
		a.transition(next.State)
		a.result.RetriesUsed = next.RetriesUsed
		progress = next

		if !progress.Terminal() {
			if err := services.SleepWithContext(ctx, a.m.timings.pauseAfter(decision, acted)); err != nil {
				return progress
			}
		}
	}
	return progress
}

type sighting struct {
	obs      Observation
	ready    Element
	language Element
	retry    Element
}

// observe probes markers in priority order and stops at the first hit. The
// ready marker gets the long wait; the rest are short probes.
func (a *attempt) observe(ctx context.Context) sighting {
	var s sighting
	if el, ok := a.session.Locate(ctx, a.m.page.Ready, a.m.timings.Ready); ok {
		s.obs.Ready, s.ready = true, el
		return s
	}
	if el, ok := a.session.Locate(ctx, a.m.page.LanguageOption(a.job.Language), a.m.timings.Probe); ok {
		s.obs.Language, s.language = true, el
		return s
	}
	if _, ok := a.session.Locate(ctx, a.m.page.Challenge, a.m.timings.Probe); ok {
		s.obs.Challenge = true
		return s
	}
	if el, ok := a.session.Locate(ctx, a.m.page.Retry, a.m.timings.Probe); ok {
		s.obs.Retry, s.retry = true, el
	}
	return s
}

func (a *attempt) act(ctx context.Context, d Decision, s sighting) bool {
	switch d.Action {
	case ActionClickReady:
		return a.session.Click(ctx, s.ready, a.m.timings.Click)
	case ActionChooseLanguage:
		if !a.session.Click(ctx, s.language, a.m.timings.Click) {
			return false
		}
		el, ok := a.session.Locate(ctx, a.m.page.Continue, a.m.timings.Probe)
		if !ok {
			return false
		}
		return a.session.Click(ctx, el, a.m.timings.Probe)
	case ActionClickRetry:
		return a.session.Click(ctx, s.retry, a.m.timings.Click)
	default:
		return false
	}
}

// scrape reveals paragraph_0, paragraph_1, ... until the next index is absent
// so the page renders the whole transcript, then reads the container once.
func (a *attempt) scrape(ctx context.Context) (string, error) {
	container, ok := a.session.Locate(ctx, a.m.page.Transcript, a.m.timings.Click)
	if !ok {
		return "", errors.New("transcript container not found")
	}
	revealed := 0
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		el, ok := a.session.Locate(ctx, ID(a.m.page.ParagraphPrefix+strconv.Itoa(i)), a.m.timings.Paragraph)
		if !ok {
			break
		}
		if err := a.session.Reveal(ctx, el, a.m.timings.Click); err != nil {
			return "", fmt.Errorf("reveal paragraph %d: %w", i, err)
		}
		revealed++
		if err := services.SleepWithContext(ctx, a.m.timings.AfterReveal); err != nil {
			return "", err
		}
	}
	markup, err := a.session.ReadMarkup(ctx, container, a.m.timings.Click)
	if err != nil {
		return "", fmt.Errorf("read transcript markup: %w", err)
	}
	a.logger.Debug("transcript scraped", logging.Int("paragraphs", revealed), logging.Int("bytes", len(markup)))
	return markup, nil
}

func (a *attempt) transition(s State) {
	a.result.State = s
	a.result.Trace = append(a.result.Trace, s)
}

func (a *attempt) fail(ctx context.Context, err error) {
	outcome := Classify(err)
	if ctx.Err() != nil {
		outcome = Cancelled
	}
	a.finish(outcome, err)
}

func (a *attempt) finish(outcome Outcome, err error) {
	a.result.Outcome = outcome
	a.result.Err = err
}
