package app

import (
	"context"
	"errors"

	"github.com/sweeney/epaper-display/internal/audio"
	"github.com/sweeney/epaper-display/internal/button"
	"github.com/sweeney/epaper-display/internal/event"
	"github.com/sweeney/epaper-display/internal/mqtt"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/screen"
	"github.com/sweeney/epaper-display/internal/status"
)

// Triple clicks on keys without a page.
const (
	KeyConnect = 0
	KeyMedia   = 2
)

func (a *App) runKeys(ctx context.Context) error {
	log := a.log.WithName("key")
	for {
		info, err := a.keyQ.Recv(ctx)
		if errors.Is(err, event.ErrClosed) || ctx.Err() != nil {
			log.Info("key task exit")
			return nil
		}
		if err != nil {
			return err
		}
		a.handleKey(ctx, info)
	}
}

// handleKey maps one gesture to screen, audio or network work. Every
// gesture beeps except the one that starts media playback.
func (a *App) handleKey(ctx context.Context, info button.PressedKeyInfo) {
	log := a.log.WithName("key")
	log.Info("key", "index", info.KeyIndex, "click", info.Click)

	needBeep := true
	action := ""
	switch info.Click {
	case button.ClickSingle:
		p := page.FromEvent(info.KeyIndex, 1)
		a.sendScreen(screen.Refresh{Page: p})
		action = "page:" + p.String()
	case button.ClickDouble:
		a.sendScreen(screen.Popup{Title: PopupTitle, Message: PopupMessage})
		action = "popup"
	case button.ClickTriple:
		p := page.FromEvent(info.KeyIndex, 3)
		if p != page.None {
			a.sendScreen(screen.Refresh{Page: p})
			action = "page:" + p.String()
			break
		}
		switch info.KeyIndex {
		case KeyConnect:
			action = "connect"
			if err := a.connectNet(ctx); err != nil {
				log.Error(err, "connect failed")
			}
		case KeyMedia:
			action = "play"
			needBeep = false
			a.sendAudio(audio.PlayFile{Path: a.opts.MediaFile})
			log.Info("send media", "path", a.opts.MediaFile)
		}
	}
	if needBeep {
		a.sendAudio(audio.KeyBeep)
	}

	now := a.now()
	a.deps.Tracker.SetLastKey(status.KeyInfo{Index: info.KeyIndex, Click: info.Click.String(), Action: action, Time: now})
	if a.deps.Publisher != nil {
		if err := a.deps.Publisher.PublishKey(mqtt.KeyEvent{Timestamp: now, Key: info, Action: action}); err != nil {
			log.Error(err, "publish key")
		}
	}
}
