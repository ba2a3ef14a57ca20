package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Varun5711/shortbox/internal/logger"
	"github.com/Varun5711/shortbox/internal/metrics"
	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/storage"
)

// Lookup finds active entities by short code. storage.Store, the lookup
// cache and the gRPC client all satisfy it.
type Lookup interface {
	FindActiveRedirect(ctx context.Context, code string, now time.Time) (*models.RedirectEntry, error)
	FindActiveList(ctx context.Context, code string, now time.Time) (*models.LinkList, error)
	FindActiveClip(ctx context.Context, code string, now time.Time) (*models.ClipboardEntry, error)
}

type OutcomeKind int

const (
	Landing OutcomeKind = iota
	Redirect
	List
	Clip
	NotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case Landing:
		return "landing"
	case Redirect:
		return "redirect"
	case List:
		return "list"
	case Clip:
		return "clip"
	default:
		return "not_found"
	}
}

// Outcome is the single result of resolving a path. For NotFound,
// Missing names the namespace that was searched, or is empty when the path
// matched no route.
type Outcome struct {
	Kind     OutcomeKind
	Code     string
	Missing  models.Kind
	Redirect *models.RedirectEntry
	List     *models.LinkList
	Clip     *models.ClipboardEntry
}

// Route is one entry of the dispatch table. Resolve reports handled=false to
// let the next route try.
type Route struct {
	Name    string
	Match   func(segments []string) bool
	Resolve func(ctx context.Context, lookup Lookup, segments []string, now time.Time) (out Outcome, handled bool, err error)
}

type Dispatcher struct {
	lookup  Lookup
	routes  []Route
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(lookup Lookup, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		lookup: lookup,
		routes: DefaultRoutes(),
		now:    time.Now,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultRoutes returns the table in precedence order. A redirect whose code
// is "list" or "clip" wins over the prefix routes for a one-segment path.
func DefaultRoutes() []Route {
	return []Route{
		{
			Name:  "landing",
			Match: func(seg []string) bool { return seg[0] == "" },
			Resolve: func(ctx context.Context, _ Lookup, _ []string, _ time.Time) (Outcome, bool, error) {
				return Outcome{Kind: Landing}, true, nil
			},
		},
		{
			Name:    "redirect",
			Match:   func(seg []string) bool { return seg[0] != "" },
			Resolve: resolveRedirect,
		},
		{
			Name:    "list",
			Match:   prefixed("list"),
			Resolve: resolveList,
		},
		{
			Name:    "clip",
			Match:   prefixed("clip"),
			Resolve: resolveClip,
		},
	}
}

// Routes lists route names in evaluation order.
func (d *Dispatcher) Routes() []string {
	names := make([]string, len(d.routes))
	for i, r := range d.routes {
		names[i] = r.Name
	}
	return names
}

// Dispatch resolves path to exactly one outcome. Lookup failures other than
// storage.ErrNotFound are returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) (Outcome, error) {
	segments := SplitPath(path)
	now := d.now()

	for _, route := range d.routes {
		if !route.Match(segments) {
			continue
		}

		out, handled, err := route.Resolve(ctx, d.lookup, segments, now)
		if err != nil {
			d.log.Error("Route %s failed for %q: %v", route.Name, path, err)
			return Outcome{}, fmt.Errorf("failed to resolve %s route: %w", route.Name, err)
		}
		if handled {
			d.metrics.Resolution(out.Kind.String())
			return out, nil
		}
	}

	d.metrics.Resolution(NotFound.String())
	return Outcome{Kind: NotFound, Code: segments[0]}, nil
}

// SplitPath drops any query or fragment, trims surrounding slashes and splits
// on "/". The result always has at least one element.
func SplitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Split(strings.Trim(path, "/"), "/")
}

func prefixed(prefix string) func([]string) bool {
	return func(seg []string) bool {
		return len(seg) >= 2 && seg[0] == prefix && seg[1] != ""
	}
}

func resolveRedirect(ctx context.Context, lookup Lookup, seg []string, now time.Time) (Outcome, bool, error) {
	entry, err := lookup.FindActiveRedirect(ctx, seg[0], now)
	if errors.Is(err, storage.ErrNotFound) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}
	return Outcome{Kind: Redirect, Code: seg[0], Redirect: entry}, true, nil
}

func resolveList(ctx context.Context, lookup Lookup, seg []string, now time.Time) (Outcome, bool, error) {
	list, err := lookup.FindActiveList(ctx, seg[1], now)
	if errors.Is(err, storage.ErrNotFound) {
		return Outcome{Kind: NotFound, Code: seg[1], Missing: models.KindList}, true, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}
	return Outcome{Kind: List, Code: seg[1], List: list}, true, nil
}

func resolveClip(ctx context.Context, lookup Lookup, seg []string, now time.Time) (Outcome, bool, error) {
	clip, err := lookup.FindActiveClip(ctx, seg[1], now)
	if errors.Is(err, storage.ErrNotFound) {
		return Outcome{Kind: NotFound, Code: seg[1], Missing: models.KindClip}, true, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}
	return Outcome{Kind: Clip, Code: seg[1], Clip: clip}, true, nil
}
