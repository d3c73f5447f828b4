// Package player holds the state of the audio preview queue: what is queued,
// what is playing, and how playback moves through the queue.
//
// No audio is decoded or output here. Callers drive playback time with
// [Player.Tick] and render [Player.Status].
package player

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

// RestartThreshold is how far into an item Prev restarts it instead of moving back.
const RestartThreshold = 3 * time.Second

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 80
)

// PlayState is the transport state.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Paused
)

func (s PlayState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return ""
	}
}

// RepeatMode controls what happens when an item or the queue ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return ""
	}
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, error) {
	for _, m := range []RepeatMode{RepeatOff, RepeatAll, RepeatOne} {
		if m.String() == s {
			return m, nil
		}
	}
	return RepeatOff, fmt.Errorf("%w: repeat mode %q", shared.ErrInvalidArgument, s)
}

// Status is a snapshot of the player for rendering.
type Status struct {
	Current  *models.Item
	Index    int
	Length   int
	State    PlayState
	Position time.Duration
	Duration time.Duration
	Volume   int
	Repeat   RepeatMode
	Shuffle  bool
}

// Player is a queue of catalog items plus transport state.
//
// Indexes passed to and returned from Player methods are positions in play
// order, which differs from insertion order while shuffle is on. All methods
// are safe for concurrent use.
type Player struct {
	mu sync.Mutex

	items    []models.Item
	order    []int
	cursor   int
	shuffle  bool
	repeat   RepeatMode
	state    PlayState
	position time.Duration
	volume   int
	rng      *rand.Rand
}

// Option configures a Player.
type Option func(*Player)

// WithSeed makes shuffle order reproducible.
func WithSeed(seed uint64) Option {
	return func(p *Player) { p.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithVolume sets the starting volume.
func WithVolume(v int) Option {
	return func(p *Player) { p.volume = clampVolume(v) }
}

// New creates an empty, stopped player.
func New(opts ...Option) *Player {
	p := &Player{cursor: -1, volume: DefaultVolume}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p
}

// Load replaces the queue and selects start. Playback stops.
func (p *Player) Load(items []models.Item, start int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(items) > 0 && (start < 0 || start >= len(items)) {
		return fmt.Errorf("%w: start %d outside queue of %d", shared.ErrInvalidArgument, start, len(items))
	}

	p.items = slices.Clone(items)
	p.order = identity(len(items))
	p.cursor = -1
	if len(items) > 0 {
		p.cursor = start
	}
	p.state = Stopped
	p.position = 0
	if p.shuffle {
		p.reshuffle()
	}
	return nil
}

// Enqueue appends items to the end of the play order.
func (p *Player) Enqueue(items ...models.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, item := range items {
		p.items = append(p.items, item)
		p.order = append(p.order, len(p.items)-1)
	}
	if p.cursor < 0 && len(p.order) > 0 {
		p.cursor = 0
	}
}

// Remove drops the item at play-order index i. Removing the current item
// selects the one after it, or the one before when it was last.
func (p *Player) Remove(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.order) {
		return fmt.Errorf("%w: index %d outside queue of %d", shared.ErrInvalidArgument, i, len(p.order))
	}

	removed := p.order[i]
	p.items = slices.Delete(p.items, removed, removed+1)
	p.order = slices.Delete(p.order, i, i+1)
	for j, idx := range p.order {
		if idx > removed {
			p.order[j] = idx - 1
		}
	}

	switch {
	case len(p.order) == 0:
		p.cursor = -1
		p.state = Stopped
		p.position = 0
	case i < p.cursor:
		p.cursor--
	case i == p.cursor:
		p.position = 0
		if p.cursor >= len(p.order) {
			p.cursor = len(p.order) - 1
		}
	}
	return nil
}

// Clear empties the queue and stops.
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items, p.order = nil, nil
	p.cursor = -1
	p.state = Stopped
	p.position = 0
}

// Queue returns the items in play order.
func (p *Player) Queue() []models.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Item, len(p.order))
	for i, idx := range p.order {
		out[i] = p.items[idx]
	}
	return out
}

// Current returns the selected item.
func (p *Player) Current() (models.Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor < 0 {
		return models.Item{}, false
	}
	return p.items[p.order[p.cursor]], true
}

// Jump selects play-order index i and starts playing it.
func (p *Player) Jump(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.order) {
		return fmt.Errorf("%w: index %d outside queue of %d", shared.ErrInvalidArgument, i, len(p.order))
	}
	p.cursor = i
	p.position = 0
	p.state = Playing
	return nil
}

// Next skips to the following item. At the end of the queue it wraps under
// RepeatAll and otherwise stops on the last item, returning false.
// RepeatOne does not hold a manual skip.
func (p *Player) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next()
}

func (p *Player) next() bool {
	if p.cursor < 0 {
		return false
	}
	p.position = 0
	if p.cursor+1 < len(p.order) {
		p.cursor++
		return true
	}
	if p.repeat == RepeatAll {
		p.cursor = 0
		return true
	}
	p.state = Stopped
	return false
}

// Prev restarts the current item when more than [RestartThreshold] has played,
// otherwise moves to the previous item. At the start of the queue it wraps
// under RepeatAll and otherwise restarts the first item.
func (p *Player) Prev() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor < 0 {
		return
	}
	if p.position > RestartThreshold {
		p.position = 0
		return
	}
	p.position = 0
	switch {
	case p.cursor > 0:
		p.cursor--
	case p.repeat == RepeatAll:
		p.cursor = len(p.order) - 1
	}
}

// Ended handles the current item finishing on its own.
func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended()
}

func (p *Player) ended() bool {
	if p.cursor < 0 {
		return false
	}
	if p.repeat == RepeatOne {
		p.position = 0
		return true
	}
	return p.next()
}

// Tick advances the position by d while playing, moving on when the item ends.
// Items without a known duration never end on their own.
func (p *Player) Tick(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing || p.cursor < 0 || d <= 0 {
		return
	}
	p.position += d
	if total := p.duration(); total > 0 && p.position >= total {
		p.ended()
	}
}

// Seek moves to d within the current item, clamped to its duration.
func (p *Player) Seek(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor < 0 {
		return
	}
	d = max(d, 0)
	if total := p.duration(); total > 0 {
		d = min(d, total)
	}
	p.position = d
}

// Play starts or resumes the current item.
func (p *Player) Play() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor < 0 {
		return false
	}
	p.state = Playing
	return true
}

// Pause holds the position. It does nothing unless playing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Playing {
		p.state = Paused
	}
}

// Toggle switches between playing and paused, starting playback when stopped.
func (p *Player) Toggle() PlayState {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.cursor < 0:
	case p.state == Playing:
		p.state = Paused
	default:
		p.state = Playing
	}
	return p.state
}

// Stop halts playback and rewinds the current item.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Stopped
	p.position = 0
}

// SetVolume sets the volume, clamped to [MinVolume, MaxVolume].
func (p *Player) SetVolume(v int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampVolume(v)
	return p.volume
}

// AdjustVolume changes the volume by delta, clamped.
func (p *Player) AdjustVolume(delta int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampVolume(p.volume + delta)
	return p.volume
}

// SetRepeat sets the repeat mode.
func (p *Player) SetRepeat(m RepeatMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = m
}

// CycleRepeat steps off -> all -> one -> off.
func (p *Player) CycleRepeat() RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = (p.repeat + 1) % 3
	return p.repeat
}

// SetShuffle turns shuffle on or off. The current item stays current: turning
// shuffle on moves it to the front of a fresh permutation, turning it off
// restores insertion order around it.
func (p *Player) SetShuffle(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if on == p.shuffle {
		return
	}
	p.shuffle = on
	if on {
		p.reshuffle()
		return
	}

	current := -1
	if p.cursor >= 0 {
		current = p.order[p.cursor]
	}
	p.order = identity(len(p.items))
	p.cursor = current
}

// Shuffled reports whether shuffle is on.
func (p *Player) Shuffled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shuffle
}

// Status returns a snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		Index:    p.cursor,
		Length:   len(p.order),
		State:    p.state,
		Position: p.position,
		Volume:   p.volume,
		Repeat:   p.repeat,
		Shuffle:  p.shuffle,
	}
	if p.cursor >= 0 {
		item := p.items[p.order[p.cursor]]
		s.Current = &item
		s.Duration = p.duration()
	}
	return s
}

// reshuffle permutes the queue with the current item first.
func (p *Player) reshuffle() {
	if len(p.order) == 0 {
		return
	}
	current := p.order[max(p.cursor, 0)]

	rest := make([]int, 0, len(p.items)-1)
	for i := range p.items {
		if i != current {
			rest = append(rest, i)
		}
	}
	p.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	p.order = append([]int{current}, rest...)
	if p.cursor >= 0 {
		p.cursor = 0
	}
}

func (p *Player) duration() time.Duration {
	return time.Duration(p.items[p.order[p.cursor]].Duration) * time.Second
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func clampVolume(v int) int {
	return min(max(v, MinVolume), MaxVolume)
}
