package session

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	uuid "github.com/satori/go.uuid"
	"gitlab.com/blackboxtests/bbt"
)

// maximizeNormalMsg is reported by some drivers when asked to maximize a window that
// the window manager will not change, the window is still usable.
const maximizeNormalMsg = "failed to change window state to maximized, current state is normal"

const scrollToBottomScript = "window.scrollTo(0, document.body.scrollHeight - 150)"

// Session drives exactly one browser session. It is not safe for concurrent use.
type Session struct {
	id          string
	num         int64
	cfg         *bbt.Config
	driver      bbt.Driver
	logger      zerolog.Logger
	disposeOnce sync.Once
	disposeErr  error
}

// New opens a browser session using the engine named in cfg. A nil cfg uses defaults.
func New(ctx context.Context, cfg *bbt.Config) (*Session, error) {
	if cfg == nil {
		cfg = bbt.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d, err := open(ctx, cfg)
	if err != nil {
		var cfgErr *bbt.ConfigurationErr
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &bbt.DriverFaultErr{Op: "open " + string(cfg.Engine), Err: err}
	}
	s := NewWithDriver(d, cfg)
	s.logger.Info().Msg("session opened")
	return s, nil
}

// NewWithDriver wraps an already connected driver
func NewWithDriver(d bbt.Driver, cfg *bbt.Config) *Session {
	if cfg == nil {
		cfg = bbt.NewConfig()
	}
	s := &Session{
		id:     uuid.NewV4().String(),
		num:    bbt.GetSessionID(),
		cfg:    cfg,
		driver: d,
	}
	s.logger = log.With().
		Str("session_id", s.id).
		Int64("session", s.num).
		Str("engine", string(cfg.Engine)).
		Logger()
	return s
}

// ID of this session
func (s *Session) ID() string {
	return s.id
}

// Config the session was created with
func (s *Session) Config() *bbt.Config {
	return s.cfg
}

// Driver returns the underlying engine for callers that need capabilities not
// exposed by the session.
func (s *Session) Driver() bbt.Driver {
	return s.driver
}

func (s *Session) ByID(id string, child ...*bbt.Locator) *bbt.Locator { return bbt.ByID(id, child...) }
func (s *Session) ByName(name string) *bbt.Locator                    { return bbt.ByName(name) }
func (s *Session) ByLinkText(text string) *bbt.Locator                { return bbt.ByLinkText(text) }
func (s *Session) ByPartialLinkText(text string) *bbt.Locator         { return bbt.ByPartialLinkText(text) }
func (s *Session) ByTag(tag string) *bbt.Locator                      { return bbt.ByTag(tag) }
func (s *Session) ByXPath(xpath string) *bbt.Locator                  { return bbt.ByXPath(xpath) }
func (s *Session) ByCSSSelector(selector string) *bbt.Locator         { return bbt.ByCSSSelector(selector) }

// ChildByXPath see bbt.ChildByXPath, parent must use the ID strategy
func (s *Session) ChildByXPath(parent *bbt.Locator, relativeXPath string) *bbt.Locator {
	return bbt.ChildByXPath(parent, relativeXPath)
}

// NavigateTo loads url in the current window
func (s *Session) NavigateTo(ctx context.Context, url string) error {
	s.logger.Debug().Str("url", url).Str("action", bbt.ActNavigate.String()).Msg("navigating")
	return s.classify(ctx, bbt.ActNavigate, nil, bbt.Required, s.driver.Navigate(ctx, url))
}

// Refresh reloads the current page
func (s *Session) Refresh(ctx context.Context) error {
	return s.classify(ctx, bbt.ActNavigate, nil, bbt.Required, s.driver.Refresh(ctx))
}

// Back navigates one entry back in history
func (s *Session) Back(ctx context.Context) error {
	return s.classify(ctx, bbt.ActNavigate, nil, bbt.Required, s.driver.Back(ctx))
}

// URL of the current document
func (s *Session) URL(ctx context.Context) (string, error) {
	u, err := s.driver.URL(ctx)
	return u, s.classify(ctx, bbt.ActNavigate, nil, bbt.Required, err)
}

// HTML is the rendered source of the current document
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.driver.HTML(ctx)
	return html, s.classify(ctx, bbt.ActRead, nil, bbt.Required, err)
}

// ExecuteScript runs script in the page
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	s.logger.Debug().Str("action", bbt.ActScript.String()).Msg("executing script")
	v, err := s.driver.ExecuteScript(ctx, script, args...)
	return v, s.classify(ctx, bbt.ActScript, nil, bbt.Required, err)
}

// ScrollToBottom of the page, leaving a small margin
func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.ExecuteScript(ctx, scrollToBottomScript)
	return err
}

// Maximize the current window. Returns false without error when the driver reports
// the window could not leave the normal state.
func (s *Session) Maximize(ctx context.Context) (bool, error) {
	err := s.driver.MaximizeWindow(ctx)
	if err == nil {
		return true, nil
	}
	if strings.Contains(err.Error(), maximizeNormalMsg) {
		s.logger.Debug().Err(err).Msg("window already in normal state")
		return false, nil
	}
	return false, s.classify(ctx, bbt.ActWindow, nil, bbt.Required, err)
}

// Windows returns the open window handles in driver order
func (s *Session) Windows(ctx context.Context) ([]string, error) {
	handles, err := s.driver.Windows(ctx)
	if err != nil {
		return nil, s.classify(ctx, bbt.ActWindow, nil, bbt.Required, err)
	}
	return handles, nil
}

// SwitchToLastWindow makes the most recently opened window current
func (s *Session) SwitchToLastWindow(ctx context.Context) error {
	handles, err := s.Windows(ctx)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return &bbt.InvalidTabErr{Message: "no windows are open"}
	}
	return s.switchWindow(ctx, handles[len(handles)-1])
}

// SwitchToTab makes the window at index current
func (s *Session) SwitchToTab(ctx context.Context, index int) error {
	handles, err := s.Windows(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(handles) {
		return &bbt.InvalidTabErr{Message: "tab " + strconv.Itoa(index) + " of " + strconv.Itoa(len(handles))}
	}
	return s.switchWindow(ctx, handles[index])
}

func (s *Session) switchWindow(ctx context.Context, handle string) error {
	s.logger.Debug().Str("window", handle).Str("action", bbt.ActWindow.String()).Msg("switching window")
	return s.classify(ctx, bbt.ActWindow, nil, bbt.Required, s.driver.SwitchWindow(ctx, handle))
}

// CloseTab closes the current window
func (s *Session) CloseTab(ctx context.Context) error {
	return s.classify(ctx, bbt.ActWindow, nil, bbt.Required, s.driver.CloseWindow(ctx))
}

// Close every window that was open when called. The handle list is not re-read
// while closing.
func (s *Session) Close(ctx context.Context) error {
	handles, err := s.Windows(ctx)
	if err != nil {
		return err
	}

	for _, handle := range handles {
		if err := s.driver.SwitchWindow(ctx, handle); err != nil {
			if errors.Is(err, bbt.ErrNoSuchWindow) {
				continue
			}
			return s.classify(ctx, bbt.ActWindow, nil, bbt.Required, err)
		}
		if err := s.driver.CloseWindow(ctx); err != nil && !errors.Is(err, bbt.ErrNoSuchWindow) {
			return s.classify(ctx, bbt.ActWindow, nil, bbt.Required, err)
		}
	}
	s.logger.Debug().Int("windows", len(handles)).Msg("closed windows")
	return nil
}

// SwitchToFrame enters the iframe or frame whose id or name is nameOrID
func (s *Session) SwitchToFrame(ctx context.Context, nameOrID string) error {
	return s.SwitchToFrameElement(ctx, bbt.ByFrame(nameOrID), bbt.Required)
}

// SwitchToFrameElement enters the frame located by by
func (s *Session) SwitchToFrameElement(ctx context.Context, by *bbt.Locator, need bbt.Need) error {
	frame, err := s.resolvePresent(ctx, bbt.ActFrame, by, need, s.cfg.ElementTimeout)
	if err != nil || frame == nil {
		return err
	}
	return s.classify(ctx, bbt.ActFrame, by, need, s.driver.SwitchFrame(ctx, frame))
}

// SwitchToDefaultContent leaves any frame and returns to the top level document
func (s *Session) SwitchToDefaultContent(ctx context.Context) error {
	return s.classify(ctx, bbt.ActFrame, nil, bbt.Required, s.driver.SwitchDefault(ctx))
}

// AcceptAlert waits briefly for an alert and accepts it. No alert appearing is not an error.
func (s *Session) AcceptAlert(ctx context.Context) error {
	present, err := s.waitForAlert(ctx, s.cfg.AlertTimeout)
	if err != nil {
		return s.classify(ctx, bbt.ActAlert, nil, bbt.Required, err)
	}
	if !present {
		s.logger.Debug().Str("action", bbt.ActAlert.String()).Msg("no alert appeared")
		return nil
	}

	err = s.driver.AcceptAlert(ctx)
	if errors.Is(err, bbt.ErrNoAlert) {
		return nil
	}
	return s.classify(ctx, bbt.ActAlert, nil, bbt.Required, err)
}

// Dispose ends the browser session. It is safe to call more than once and on a
// session that was never opened.
func (s *Session) Dispose() error {
	if s == nil {
		return nil
	}
	s.disposeOnce.Do(func() {
		if s.driver == nil {
			return
		}
		s.disposeErr = s.driver.Close()
		if s.disposeErr != nil {
			s.logger.Warn().Err(s.disposeErr).Msg("failed to close driver")
			return
		}
		s.logger.Info().Msg("session disposed")
	})
	return s.disposeErr
}
