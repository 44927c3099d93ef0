package scrape

import (
	"context"

	"github.com/tbourn/go-ratings-pipeline/internal/browser"
)

// ChromeLauncher starts one Chrome process per session.
type ChromeLauncher struct {
	Browser browser.Options
	Session Config
}

// Launch starts a browser, opens the search page and returns a ready Session
// with the given pool position. The browser is closed if the session cannot
// be opened.
func (l ChromeLauncher) Launch(ctx context.Context, id int) (*Session, error) {
	tab, err := browser.Launch(ctx, l.Browser)
	if err != nil {
		return nil, err
	}
	cfg := l.Session
	cfg.ID = id
	s, err := Open(ctx, tab, cfg)
	if err != nil {
		_ = tab.Close()
		return nil, err
	}
	return s, nil
}
