package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/clock"
	"github.com/linkgate/urlshortener/internal/models"
)

// DefaultWorkerCount bounds concurrent HEAD requests during a sweep.
const DefaultWorkerCount = 5

// ActiveLinkLister is the subset of the link repository the monitor reads.
type ActiveLinkLister interface {
	ListActiveLinks(ctx context.Context, now time.Time) ([]models.Link, error)
}

// StateChange reports a destination that became reachable or unreachable
// since the previous sweep.
type StateChange struct {
	LinkID      uuid.UUID
	ShortCode   string
	OriginalURL string
	Accessible  bool
}

// UrlMonitor manages periodic monitoring of original URLs to check their accessibility.
// It maintains a state map to track URL status changes and notify when they occur.
type UrlMonitor struct {
	links       ActiveLinkLister
	interval    time.Duration
	workers     int
	clock       clock.Clock
	log         *zap.Logger
	httpClient  *http.Client
	mu          sync.Mutex          // Protects knownStates
	knownStates map[uuid.UUID]bool // Link ID -> last observed accessibility
}

// NewUrlMonitor creates and returns a new instance of UrlMonitor.
// interval determines how frequently URLs will be checked.
func NewUrlMonitor(links ActiveLinkLister, interval time.Duration, workers int, clk clock.Clock, log *zap.Logger) *UrlMonitor {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UrlMonitor{
		links:       links,
		interval:    interval,
		workers:     workers,
		clock:       clk,
		log:         log,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		knownStates: make(map[uuid.UUID]bool),
	}
}

// Start runs a sweep immediately and then every interval until ctx is done.
func (m *UrlMonitor) Start(ctx context.Context) {
	m.log.Info("Starting URL monitor", zap.Duration("interval", m.interval), zap.Int("workers", m.workers))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("URL monitor stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep checks every active link once and returns the state changes observed.
// The first observation of a link is recorded but not reported as a change.
func (m *UrlMonitor) Sweep(ctx context.Context) []StateChange {
	links, err := m.links.ListActiveLinks(ctx, m.clock.Now())
	if err != nil {
		m.log.Error("Failed to retrieve links for monitoring", zap.Error(err))
		return nil
	}

	jobs := make(chan models.Link)
	var (
		wg      sync.WaitGroup
		changes []StateChange
		out     sync.Mutex
	)
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				if change, ok := m.check(ctx, link); ok {
					out.Lock()
					changes = append(changes, change)
					out.Unlock()
				}
			}
		}()
	}

feed:
	for _, link := range links {
		select {
		case jobs <- link:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	m.log.Debug("URL status verification completed", zap.Int("links", len(links)), zap.Int("changes", len(changes)))
	return changes
}

func (m *UrlMonitor) check(ctx context.Context, link models.Link) (StateChange, bool) {
	current := m.isUrlAccessible(ctx, link.OriginalURL)

	m.mu.Lock()
	previous, seen := m.knownStates[link.ID]
	m.knownStates[link.ID] = current
	m.mu.Unlock()

	if !seen {
		m.log.Debug("Initial link state",
			zap.String("short_code", link.ShortCode), zap.String("url", link.OriginalURL), zap.String("state", formatState(current)))
		return StateChange{}, false
	}
	if current == previous {
		return StateChange{}, false
	}

	m.log.Warn("Link destination changed state",
		zap.String("short_code", link.ShortCode),
		zap.String("url", link.OriginalURL),
		zap.String("from", formatState(previous)),
		zap.String("to", formatState(current)))
	return StateChange{LinkID: link.ID, ShortCode: link.ShortCode, OriginalURL: link.OriginalURL, Accessible: current}, true
}

// isUrlAccessible performs an HTTP HEAD request. 2xx and 3xx count as accessible.
func (m *UrlMonitor) isUrlAccessible(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		m.log.Debug("Invalid monitored URL", zap.String("url", url), zap.Error(err))
		return false
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func formatState(accessible bool) string {
	if accessible {
		return "ACCESSIBLE"
	}
	return "INACCESSIBLE"
}
