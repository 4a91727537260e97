// Package ota checks the update server for newer firmware, streams it into
// the inactive slot and restarts the device onto it.
package ota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/network"
)

// Server protocol.
const (
	QueryPath = "/upgrade/query"
	QueryAck  = "UpgradeQuery_ACK"
)

// ErrNoUpdate is returned by Check when the server has nothing newer.
var ErrNoUpdate = errors.New("ota: no update")

// State is the updater's progress through one Sync.
type State int

const (
	Idle State = iota
	Querying
	NoUpdate
	Downloading
	Flashing
	Rebooting
	Aborted
)

var stateNames = [...]string{
	Idle:        "IDLE",
	Querying:    "QUERYING",
	NoUpdate:    "NO_UPDATE",
	Downloading: "DOWNLOADING",
	Flashing:    "FLASHING",
	Rebooting:   "REBOOTING",
	Aborted:     "ABORTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// UpgradeQueryResponse is the payload of an UpgradeQuery_ACK.
type UpgradeQueryResponse struct {
	Version     string `json:"version"`
	DeviceType  string `json:"device_type"`
	PackSize    uint64 `json:"pack_size"`
	DownloadURL string `json:"download_url"`
}

// Options configure an Updater.
type Options struct {
	// Device is sent with every query. Device.Version is the running
	// build, in VersionLayout.
	Device config.DeviceInfo
	// Interval is the minimum time between queries; zero queries on every
	// Sync.
	Interval time.Duration
}

// Updater runs the update sequence. It is not safe for concurrent use.
type Updater struct {
	client  *network.Client
	target  Target
	restart func() error
	opts    Options
	log     logr.Logger
	now     func() time.Time
	state   State

	// OnState, if set, observes every transition.
	OnState func(State)
}

// NewUpdater creates an updater. restart is called once a new image is
// active; on a real device it does not return.
func NewUpdater(client *network.Client, target Target, restart func() error, opts Options, log logr.Logger) *Updater {
	return &Updater{
		client:  client,
		target:  target,
		restart: restart,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func (u *Updater) set(s State) {
	if s != u.state {
		u.log.Info("ota", "from", u.state, "to", s)
	}
	u.state = s
	if u.OnState != nil {
		u.OnState(s)
	}
}

// Sync runs Querying → NoUpdate, or Querying → Downloading → Flashing →
// Rebooting. Any failure ends in Aborted with the previous image still
// active. A Sync within Interval of the last query stays Idle.
func (u *Updater) Sync(ctx context.Context) (State, error) {
	u.state = Idle
	now := u.now()
	if last := u.target.LastQuery(); u.opts.Interval > 0 && !last.IsZero() &&
		!now.Before(last) && now.Sub(last) < u.opts.Interval {
		u.log.V(1).Info("update query not due", "last", last, "interval", u.opts.Interval)
		return Idle, nil
	}

	u.set(Querying)
	info, err := u.Check(ctx)
	if err != nil && !errors.Is(err, ErrNoUpdate) {
		u.set(Aborted)
		return Aborted, err
	}
	if err := u.target.MarkQuery(now); err != nil {
		u.log.Error(err, "record update query")
	}
	if errors.Is(err, ErrNoUpdate) {
		u.set(NoUpdate)
		return NoUpdate, nil
	}

	u.log.Info("update available", "version", info.Version, "size", info.PackSize, "url", info.DownloadURL)
	u.set(Downloading)
	if err := u.install(ctx, info); err != nil {
		u.set(Aborted)
		return Aborted, err
	}

	u.set(Rebooting)
	if err := u.restart(); err != nil {
		return Rebooting, fmt.Errorf("restart: %w", err)
	}
	return Rebooting, nil
}

// Check queries the server and returns the advertised image if it is newer
// than the running build, else ErrNoUpdate.
func (u *Updater) Check(ctx context.Context) (*UpgradeQueryResponse, error) {
	resp, err := u.client.Post(ctx, QueryPath, u.opts.Device)
	if err != nil {
		return nil, fmt.Errorf("upgrade query: %w", err)
	}
	if resp.Cmd != QueryAck {
		u.log.Info("unexpected upgrade reply", "cmd", resp.Cmd)
		return nil, ErrNoUpdate
	}
	var info UpgradeQueryResponse
	if err := json.Unmarshal(resp.Payload, &info); err != nil {
		return nil, fmt.Errorf("decode upgrade reply: %w", err)
	}
	newer, err := judge(info.Version, u.opts.Device.Version)
	if err != nil {
		u.log.Error(err, "compare versions")
		return nil, ErrNoUpdate
	}
	if !newer {
		u.log.Info("firmware is current", "build", u.opts.Device.Version, "server", info.Version)
		return nil, ErrNoUpdate
	}
	if installed := u.target.Installed(); installed == info.Version {
		// Activated but not running: the service does not exec the boot
		// link.
		u.log.Info("update already installed, not running it", "build", u.opts.Device.Version, "installed", installed)
		return nil, ErrNoUpdate
	}
	return &info, nil
}

func (u *Updater) install(ctx context.Context, info *UpgradeQueryResponse) error {
	body, size, err := u.client.Open(ctx, info.DownloadURL)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer body.Close()
	if size < 0 && info.PackSize > 0 {
		size = int64(info.PackSize)
	}

	w, err := u.target.Begin(size, info.Version)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		if aerr := w.Abort(); aerr != nil {
			u.log.Error(aerr, "abort update")
		}
		return fmt.Errorf("download after %d bytes: %w", n, err)
	}

	u.set(Flashing)
	if err := w.Complete(); err != nil {
		return fmt.Errorf("finalize update: %w", err)
	}
	u.log.Info("update installed", "bytes", n)
	return nil
}
