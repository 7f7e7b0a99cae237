// Package decorations aggregates badges and colors that decorators attach to
// workspace paths in a tree view
package decorations

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/xpomul/workspacefs/internal/util"
)

var ErrDuplicateDecorator = errors.New("decorator already registered")

type Decoration struct {
	Badge   string
	Color   string
	Tooltip string
	// Higher priorities sort first
	Priority int
}

// Decorator computes decorations for a batch of paths. Paths without a
// decoration are left out of the result
type Decorator interface {
	ID() string
	Decorate(ctx context.Context, paths []string) (map[string]Decoration, error)
}

// Service keeps registered decorators and notifies subscribers when
// decorations may have changed
type Service struct {
	decorators *xsync.Map[string, Decorator]
	subs       *xsync.Map[uint64, chan struct{}]
	nextID     atomic.Uint64
}

func NewService() *Service {
	return &Service{
		decorators: xsync.NewMap[string, Decorator](),
		subs:       xsync.NewMap[uint64, chan struct{}](),
	}
}

// Register adds d. Call the returned func to remove it again
func (s *Service) Register(d Decorator) (unregister func(), err error) {
	if _, loaded := s.decorators.LoadOrStore(d.ID(), d); loaded {
		return nil, fmt.Errorf("register %q: %w", d.ID(), ErrDuplicateDecorator)
	}
	s.Fire()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.decorators.Delete(d.ID())
			s.Fire()
		})
	}, nil
}

// Decorators lists registered decorator IDs in sorted order
func (s *Service) Decorators() []string {
	ids := make([]string, 0, s.decorators.Size())
	s.decorators.Range(func(id string, _ Decorator) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)
	return ids
}

// Decorations asks every decorator about paths and merges the answers.
// A failing decorator is skipped
func (s *Service) Decorations(ctx context.Context, paths []string) map[string][]Decoration {
	logger := util.GetLogger("Decorations.Decorations")

	merged := map[string][]Decoration{}
	for _, id := range s.Decorators() {
		d, ok := s.decorators.Load(id)
		if !ok {
			continue
		}
		got, err := d.Decorate(ctx, paths)
		if err != nil {
			logger.Warn().Err(err).Str("decorator", id).Msg("Decorator failed")
			continue
		}
		for p, dec := range got {
			merged[p] = append(merged[p], dec)
		}
	}
	for _, decs := range merged {
		slices.SortStableFunc(decs, func(a, b Decoration) int {
			return cmp.Or(cmp.Compare(b.Priority, a.Priority), strings.Compare(a.Badge, b.Badge))
		})
	}
	return merged
}

// Subscribe returns a channel that receives a value after decorations
// changed. Notifications coalesce while unread
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	id := s.nextID.Add(1)
	ch := make(chan struct{}, 1)
	s.subs.Store(id, ch)
	return ch, func() { s.subs.Delete(id) }
}

// Fire notifies subscribers without blocking
func (s *Service) Fire() {
	s.subs.Range(func(_ uint64, ch chan struct{}) bool {
		select {
		case ch <- struct{}{}:
		default:
		}
		return true
	})
}
