package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const loginURL = "https://www.fpl.com/my-account/login.html"

// captureTimeout bounds the whole interactive session, including any MFA
// prompts the user has to click through.
const captureTimeout = 10 * time.Minute

// CaptureToken opens a visible browser on the FPL login page and watches
// network traffic for the jwttoken response header the site issues after a
// successful sign-in. Credentials, when given, are typed into the form;
// otherwise the user signs in by hand. Returns the first captured token.
func CaptureToken(ctx context.Context, username, password string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, captureTimeout)
	defer cancel()

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		return "", fmt.Errorf("enabling network capture: %w", err)
	}

	tokenCh := make(chan string, 1)
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		for name, value := range resp.Response.Headers {
			if !strings.EqualFold(name, "jwttoken") {
				continue
			}
			if token, ok := value.(string); ok && token != "" {
				select {
				case tokenCh <- token:
				default:
				}
			}
		}
	})

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return "", fmt.Errorf("navigating to login page: %w", err)
	}

	if username != "" && password != "" {
		if err := fillLogin(browserCtx, username, password); err != nil {
			// Selectors drift as FPL redesigns the page; fall back to a
			// manual sign-in rather than failing the capture.
			fmt.Printf("Automatic login failed (%v), sign in manually in the browser window\n", err)
		}
	}

	select {
	case token := <-tokenCh:
		return token, nil
	case <-browserCtx.Done():
		return "", fmt.Errorf("no session token captured before the browser session ended: %w", browserCtx.Err())
	}
}

func fillLogin(ctx context.Context, username, password string) error {
	return chromedp.Run(ctx,
		chromedp.WaitVisible(`input[name="userId"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="userId"]`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
}
