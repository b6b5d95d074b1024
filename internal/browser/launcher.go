package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"transcripter/internal/config"
	"transcripter/internal/logging"
	"transcripter/internal/proxy"
	"transcripter/internal/upload"
)

// Launcher starts one browser per session. It implements upload.Opener.
type Launcher struct {
	Headless bool
	ExecPath string
	Page     upload.Page
	Logger   *slog.Logger
}

// NewLauncher builds a launcher from the browser section of cfg.
func NewLauncher(cfg *config.Config, logger *slog.Logger) *Launcher {
	return &Launcher{
		Headless: cfg.Browser.Headless,
		ExecPath: cfg.Browser.ExecPath,
		Page:     upload.DefaultPage(),
		Logger:   logger,
	}
}

func (l *Launcher) allocatorOptions(via proxy.Proxy) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", l.Headless))
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	if !via.IsDirect() {
		opts = append(opts, chromedp.ProxyServer(via.URL()))
	}
	return opts
}

// Open launches a browser routed through via, loads url and waits for the
// file input until ctx expires.
func (l *Launcher) Open(ctx context.Context, url string, via proxy.Proxy) (upload.Session, error) {
	logger := logging.NewComponentLogger(l.Logger, "browser")
	page := l.Page
	if page == (upload.Page{}) {
		page = upload.DefaultPage()
	}

	// The browser outlives ctx, which only bounds the open.
	base := context.WithoutCancel(ctx)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(base, l.allocatorOptions(via)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("devtools error", logging.String("detail", fmt.Sprintf(format, args...)))
		}),
	)
	s := &session{
		ctx:  browserCtx,
		page: page,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		logger: logger,
	}

	// The first Run starts the process and must not carry a deadline.
	if err := chromedp.Run(browserCtx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	var bound time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		bound = time.Until(deadline)
	}
	fileInput, opt := query(page.FileInput)
	if err := s.run(ctx, bound, chromedp.Navigate(url), chromedp.WaitReady(fileInput, opt)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("load %s via %s: %w", url, via, err)
	}
	logger.Debug("session opened", logging.String(logging.FieldProxy, via.ID()))
	return s, nil
}

type session struct {
	ctx    context.Context
	page   upload.Page
	cancel context.CancelFunc
	logger *slog.Logger
}

// defaultOpTimeout bounds calls made without an explicit timeout. chromedp
// queries poll until their node appears, so no call may run unbounded.
const defaultOpTimeout = time.Minute

func opTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultOpTimeout
	}
	return timeout
}

// run executes actions bounded by timeout and by ctx.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, opTimeout(timeout))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *session) Locate(ctx context.Context, sel upload.Selector, timeout time.Duration) (upload.Element, bool) {
	var nodes []*cdp.Node
	q, opt := query(sel)
	if err := s.run(ctx, timeout, chromedp.Nodes(q, &nodes, opt)); err != nil || len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

func (s *session) Click(ctx context.Context, el upload.Element, timeout time.Duration) bool {
	ids, err := nodeIDs(el)
	if err != nil {
		return false
	}
	if err := s.run(ctx, timeout, chromedp.Click(ids, chromedp.ByNodeID)); err != nil {
		s.logger.Debug("click failed", logging.Error(err))
		return false
	}
	return true
}

func (s *session) Reveal(ctx context.Context, el upload.Element, timeout time.Duration) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return s.run(ctx, timeout, chromedp.ScrollIntoView(ids, chromedp.ByNodeID))
}

func (s *session) SubmitFile(ctx context.Context, path string, timeout time.Duration) error {
	q, opt := query(s.page.FileInput)
	return s.run(ctx, timeout, chromedp.SetUploadFiles(q, []string{path}, opt))
}

func (s *session) ReadMarkup(ctx context.Context, el upload.Element, timeout time.Duration) (string, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return "", err
	}
	var markup string
	if err := s.run(ctx, timeout, chromedp.OuterHTML(ids, &markup, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return markup, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (s *session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var errForeignElement = errors.New("element was not produced by a browser session")

func nodeIDs(el upload.Element) ([]cdp.NodeID, error) {
	node, ok := el.(*cdp.Node)
	if !ok || node == nil {
		return nil, errForeignElement
	}
	return []cdp.NodeID{node.NodeID}, nil
}
