package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"sjsage522/carlistingworker/helpers"
)

// Session is one browser-automation handle. A session is owned by the pool
// while free and by exactly one task while leased; it is never shared.
type Session interface {
	// Navigate loads a URL and blocks until the page load settles or the
	// session's load timeout elapses.
	Navigate(url string) error

	// WaitReady blocks until at least one element matching the selector is
	// attached to the DOM, or the timeout elapses.
	WaitReady(selector string, timeout time.Duration) error

	// Click dispatches a click on the first element matching the selector.
	Click(selector string) error

	// Eval runs a script in the page and unmarshals its result into out.
	// A nil out discards the result.
	Eval(script string, out interface{}) error

	// Document snapshots the rendered DOM as a parsed document.
	Document() (*goquery.Document, error)

	// Alive reports whether the session still responds to a cheap probe.
	Alive() bool

	// Close releases the underlying browser. Safe to call more than once.
	Close() error
}

// Factory creates one fresh session.
type Factory func() (Session, error)

const clickTimeout = 5 * time.Second

// chromeSession drives a dedicated headless Chrome via chromedp.
type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	loadTimeout time.Duration
}

// NewChromeFactory returns a Factory producing headless Chrome sessions.
// Each session owns its own allocator so a crashed browser never takes
// siblings down with it.
func NewChromeFactory(headless bool, loadTimeout time.Duration) Factory {
	return func() (Session, error) {
		return newChromeSession(headless, loadTimeout)
	}
}

func newChromeSession(headless bool, loadTimeout time.Duration) (*chromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(helpers.BrowserUserAgent()),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		loadTimeout: loadTimeout,
	}

	// Probe the fresh browser before handing it out
	if err := s.run(10*time.Second, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("session probe failed: %w", err)
	}

	return s, nil
}

// run executes chromedp actions under a per-operation timeout.
func (s *chromeSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *chromeSession) Navigate(url string) error {
	if err := s.run(s.loadTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitReady(selector string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Click(selector string) error {
	if err := s.run(clickTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Eval(script string, out interface{}) error {
	if err := s.run(10*time.Second, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	return nil
}

func (s *chromeSession) Document() (*goquery.Document, error) {
	var html string
	if err := s.run(10*time.Second, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("snapshot document: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Alive reads the current location as a cheap liveness probe.
func (s *chromeSession) Alive() bool {
	var href string
	return s.run(5*time.Second, chromedp.Location(&href)) == nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}
