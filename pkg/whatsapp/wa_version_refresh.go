package whatsapp

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
)

// VersionStatus describes the WhatsApp Web version currently advertised.
type VersionStatus struct {
	CurrentVersion store.WAVersionContainer `json:"current_version"`
	LastRefreshed  *time.Time              `json:"last_refreshed,omitempty"`
	LastError      string                  `json:"last_error,omitempty"`
}

// VersionRefresher keeps store's WA version in line with the live web client,
// which QR pairing rejects once it falls too far behind.
type VersionRefresher struct {
	minInterval time.Duration
	fetch       func(ctx context.Context) (*store.WAVersionContainer, error)
	group       singleflight.Group

	mu        sync.RWMutex
	refreshed *time.Time
	lastErr   string
}

func NewVersionRefresher() *VersionRefresher {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	return &VersionRefresher{
		minInterval: env.GetEnvDurationOrDefault("WHATSAPP_VERSION_REFRESH_MIN_INTERVAL", 10*time.Minute),
		fetch: func(ctx context.Context) (*store.WAVersionContainer, error) {
			return whatsmeow.GetLatestVersion(ctx, httpClient)
		},
	}
}

func (r *VersionRefresher) Status() VersionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *time.Time
	if r.refreshed != nil {
		t := *r.refreshed
		last = &t
	}
	return VersionStatus{
		CurrentVersion: store.GetWAVersion(),
		LastRefreshed:  last,
		LastError:      r.lastErr,
	}
}

// Refresh fetches and applies the latest version. Unless force is set, calls
// within the minimum interval of the previous attempt are skipped; the bool
// result reports whether a fetch happened.
func (r *VersionRefresher) Refresh(ctx context.Context, force bool) (VersionStatus, bool, error) {
	if !force && r.minInterval > 0 {
		r.mu.RLock()
		last := r.refreshed
		r.mu.RUnlock()
		if last != nil && time.Since(*last) < r.minInterval {
			return r.Status(), false, nil
		}
	}

	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		latest, err := r.fetch(ctx)
		if err == nil && latest == nil {
			err = errors.New("latest WhatsApp Web version is nil")
		}
		if err == nil {
			store.SetWAVersion(*latest)
		}
		r.record(err)
		return nil, err
	})
	if err != nil {
		return r.Status(), true, errors.Wrap(err, "refresh WhatsApp Web version")
	}
	return r.Status(), true, nil
}

func (r *VersionRefresher) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.refreshed = &now
	r.lastErr = ""
	if err != nil {
		r.lastErr = err.Error()
	}
}
