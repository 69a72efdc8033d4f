package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Serdar715/pathguard/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

const closeTimeout = 5 * time.Second

// NewLauncher builds the rod launcher from the browser settings
func NewLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-infobars").
		Set("disable-extensions").
		Set("disable-gpu")
	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	return l
}

// RodDriver implements Driver on top of a single rod browser
type RodDriver struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	navTimeout time.Duration
	closeOnce  sync.Once
	closeErr   error
}

// Launch starts a browser process and connects to it.
func Launch(ctx context.Context, cfg config.BrowserConfig) (*RodDriver, error) {
	l := NewLauncher(cfg).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	log.Debug().Str("control_url", controlURL).Msg("Browser launched")

	return &RodDriver{browser: b, launcher: l, navTimeout: cfg.NavigationTimeout}, nil
}

// Open creates a page, installs the dialog handler and navigates to url.
func (d *RodDriver) Open(ctx context.Context, url string) (Session, error) {
	page, err := d.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	pageCtx, cancel := context.WithCancel(ctx)
	s := &rodSession{root: page, page: page.Context(pageCtx), cancel: cancel, attrTimeout: d.navTimeout}

	if err := (proto.PageEnable{}).Call(s.page); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable page events: %w", err)
	}

	// Dialogs would block the page until handled; accept them and keep the message.
	// EachEvent returns once pageCtx is cancelled by Close.
	go s.page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		s.recordDialog(e.Message)
		_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(s.page)
	})()

	nav := s.page.Timeout(d.navTimeout)
	defer nav.CancelTimeout()
	if err := nav.Navigate(url); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := nav.WaitLoad(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	return s, nil
}

// Close closes the browser and removes its profile directory
func (d *RodDriver) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.browser.Close()
		d.launcher.Cleanup()
	})
	return d.closeErr
}

type rodSession struct {
	root        *rod.Page
	page        *rod.Page
	cancel      context.CancelFunc
	attrTimeout time.Duration

	mu      sync.Mutex
	dialogs []string

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) BodyText(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (s *rodSession) Attribute(ctx context.Context, elementID, name string) (string, bool, error) {
	p := s.page.Context(ctx).Timeout(s.attrTimeout)
	defer p.CancelTimeout()

	// the page has finished loading, so a missing element is final
	el, err := p.Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(`(id) => document.getElementById(id)`, elementID))
	if err != nil {
		var notFound *rod.ElementNotFoundError
		if errors.As(err, &notFound) {
			return "", false, fmt.Errorf("%w: #%s", ErrElementNotFound, elementID)
		}
		return "", false, fmt.Errorf("failed to look up #%s: %w", elementID, err)
	}

	// The DOM property holds the resolved URL for src/href
	prop, err := el.Property(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s of #%s: %w", name, elementID, err)
	}
	if value, ok := prop.Val().(string); ok && value != "" {
		return value, true, nil
	}

	value, err := el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s of #%s: %w", name, elementID, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (s *rodSession) Dialogs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.dialogs))
	copy(out, s.dialogs)
	return out
}

func (s *rodSession) recordDialog(msg string) {
	s.mu.Lock()
	s.dialogs = append(s.dialogs, msg)
	s.mu.Unlock()
}

// Close stops the dialog listener and closes the page with a fresh deadline,
// so it still runs when the caller's context is already done.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		p := s.root.Timeout(closeTimeout)
		s.closeErr = p.Close()
		p.CancelTimeout()
	})
	return s.closeErr
}
