package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

const (
	toggleSelector   = `a.KnotenLink[id$='-toggle']`
	langSwitcher     = `button.coa-lang-switcher`
	langEnglish      = `button[mat-menu-item][title='Language English'], button.mat-mdc-menu-item[title='Language English']`
	healthEvery      = 5
	clickTimeout     = 5 * time.Second
	healthTimeout    = 5 * time.Second
	contentWait      = 15 * time.Second
	collectToggleIDs = `Array.from(document.querySelectorAll("a.KnotenLink[id$='-toggle']"))
	.filter(a => !(a.getAttribute("style") || "").includes("minus"))
	.map(a => a.id)`
)

// BrowserOptions configures a BrowserSource.
type BrowserOptions struct {
	Headless    bool
	PageTimeout time.Duration
	// WaitSelector is awaited after load when set; pages without it are
	// still returned.
	WaitSelector string
	// Pause is the settle time after each click.
	Pause  time.Duration
	Logger *logger.Logger
}

// BrowserSource drives one stateful headless Chrome tab. Chrome starts on
// first use.
type BrowserSource struct {
	opts BrowserOptions
	log  *logger.Logger

	mu            sync.Mutex
	ctx           context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewBrowserSource creates a browser source. No process is started yet.
func NewBrowserSource(opts BrowserOptions) *BrowserSource {
	if opts.PageTimeout == 0 {
		opts.PageTimeout = 30 * time.Second
	}
	if opts.Pause == 0 {
		opts.Pause = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &BrowserSource{opts: opts, log: log}
}

func (b *BrowserSource) session() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx != nil {
		return b.ctx, nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	bctx, cancelBrowser := chromedp.NewContext(actx)
	if err := chromedp.Run(bctx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	b.ctx, b.cancelAlloc, b.cancelBrowser = bctx, cancelAlloc, cancelBrowser
	b.log.Info("browser session started", "headless", b.opts.Headless)
	return b.ctx, nil
}

// run executes actions in the tab, bounded by timeout and by ctx.
func (b *BrowserSource) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	sctx, err := b.session()
	if err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(sctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err = chromedp.Run(tctx, actions...)
	if err != nil && sctx.Err() != nil {
		return ErrSessionDead
	}
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Alive probes the session by evaluating a trivial expression.
func (b *BrowserSource) Alive() bool {
	b.mu.Lock()
	started := b.ctx != nil
	b.mu.Unlock()
	if !started {
		return false
	}
	var state string
	return b.run(context.Background(), healthTimeout, chromedp.Evaluate(`document.readyState`, &state)) == nil
}

func (b *BrowserSource) Fetch(ctx context.Context, pageURL string) (Page, error) {
	if _, err := b.session(); err != nil {
		return Page{}, err
	}
	return readTab(ctx, b, pageURL, b.opts.WaitSelector, b.log)
}

// tab is the part of a browser session readTab drives.
type tab interface {
	Alive() bool
	Navigate(ctx context.Context, pageURL string) error
	WaitFor(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
}

// readTab loads pageURL and returns its markup. The session is checked
// before loading and again after reading, so markup captured while the
// browser died is never returned as a page.
func readTab(ctx context.Context, t tab, pageURL, waitSelector string, log *logger.Logger) (Page, error) {
	if !t.Alive() {
		return Page{}, ErrSessionDead
	}
	if err := t.Navigate(ctx, pageURL); err != nil {
		return Page{}, err
	}
	if waitSelector != "" {
		if err := t.WaitFor(ctx, waitSelector); err != nil {
			if errors.Is(err, ErrSessionDead) {
				return Page{}, err
			}
			log.Debug("content selector not found", "url", pageURL, "selector", waitSelector)
		}
	}
	html, err := t.HTML(ctx)
	if err != nil {
		return Page{}, err
	}
	if !t.Alive() {
		return Page{}, ErrSessionDead
	}
	return Page{URL: pageURL, HTML: html, Via: ViaBrowser}, nil
}

// WaitFor waits until selector is ready in the current document.
func (b *BrowserSource) WaitFor(ctx context.Context, selector string) error {
	return b.run(ctx, contentWait, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// Navigate loads pageURL and waits for the body.
func (b *BrowserSource) Navigate(ctx context.Context, pageURL string) error {
	err := b.run(ctx, b.opts.PageTimeout,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil && !errors.Is(err, ErrSessionDead) {
		return fmt.Errorf("loading %s in browser: %w", pageURL, err)
	}
	return err
}

// HTML returns the current document markup.
func (b *BrowserSource) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, b.opts.PageTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// SwitchToEnglish opens the language menu and picks English.
func (b *BrowserSource) SwitchToEnglish(ctx context.Context) error {
	err := b.run(ctx, 2*contentWait,
		chromedp.Click(langSwitcher, chromedp.ByQuery),
		chromedp.Sleep(b.opts.Pause),
		chromedp.Click(langEnglish, chromedp.ByQuery),
		chromedp.Sleep(b.opts.Pause),
	)
	if err != nil {
		return fmt.Errorf("switching language: %w", err)
	}
	return nil
}

// ExpandTree clicks every collapsed curriculum toggle, level by level, for
// up to maxDepth rounds, pausing after each batch. It returns the number of
// successful clicks. A dead session aborts with ErrSessionDead; a single
// failed click is logged and skipped.
func (b *BrowserSource) ExpandTree(ctx context.Context, maxDepth, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 10
	}
	clicks := 0
	for depth := 1; depth <= maxDepth; depth++ {
		if !b.Alive() {
			return clicks, ErrSessionDead
		}
		var ids []string
		if err := b.run(ctx, healthTimeout, chromedp.Evaluate(collectToggleIDs, &ids)); err != nil {
			return clicks, err
		}
		b.log.Info("expanding curriculum tree", "depth", depth, "toggles", len(ids))
		if len(ids) == 0 {
			break
		}

		for start := 0; start < len(ids); start += batchSize {
			end := min(start+batchSize, len(ids))
			for i, id := range ids[start:end] {
				n := start + i + 1
				if !b.Alive() {
					return clicks, ErrSessionDead
				}
				err := b.run(ctx, clickTimeout,
					chromedp.ScrollIntoView(id, chromedp.ByID),
					chromedp.Click(id, chromedp.ByID),
					chromedp.Sleep(b.opts.Pause),
				)
				switch {
				case errors.Is(err, ErrSessionDead):
					return clicks, err
				case ctx.Err() != nil:
					return clicks, ctx.Err()
				case err != nil:
					b.log.Warn("toggle click failed", "toggle", id, "error", err)
				default:
					clicks++
				}
				if n%healthEvery == 0 && !b.Alive() {
					return clicks, ErrSessionDead
				}
			}
			time.Sleep(b.opts.Pause)
		}
	}
	return clicks, nil
}

func (b *BrowserSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelBrowser != nil {
		b.cancelBrowser()
		b.cancelAlloc()
	}
	b.ctx = nil
	return nil
}
