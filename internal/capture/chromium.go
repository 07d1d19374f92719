// Package capture renders the printable month agenda to PNG with headless
// Chromium.
package capture

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Viewport of the print layout (A4 landscape at 96 dpi).
const (
	DefaultWidth      = 1123
	DefaultHeight     = 794
	DefaultTimeoutSec = 30
)

// ReadySelector is exposed by the print page once the grid is rendered.
const ReadySelector = `[data-ready="true"]`

type Options struct {
	// URL of the print page, e.g. "http://127.0.0.1:8080/agenda/print?month=2026-02".
	URL        string
	OutputPath string

	Width  int
	Height int

	Timeout time.Duration

	// Cookies are installed for URL before navigating; the print page sits
	// behind the console session.
	Cookies []*http.Cookie
}

// PrintURL builds the print page address for month under base.
func PrintURL(base string, month time.Time) string {
	q := url.Values{"month": {month.Format("2006-01")}}
	return strings.TrimSuffix(base, "/") + "/agenda/print?" + q.Encode()
}

// SnapshotAgenda navigates to opts.URL, waits for ReadySelector and writes
// a full-page PNG to opts.OutputPath.
func SnapshotAgenda(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		setCookies(opts.URL, opts.Cookies),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

func setCookies(target string, cookies []*http.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ck := range cookies {
			if err := network.SetCookie(ck.Name, ck.Value).
				WithURL(target).
				WithHTTPOnly(true).
				Do(ctx); err != nil {
				return fmt.Errorf("capture: set cookie %s: %w", ck.Name, err)
			}
		}
		return nil
	})
}
