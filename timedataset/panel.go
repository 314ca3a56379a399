package timedataset

import (
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
)

var (
	ErrNoEntities     = fmt.Errorf("panel has no entities, %w", errkind.ErrValue)
	ErrDuplicateKey   = fmt.Errorf("duplicate entity key, %w", errkind.ErrValue)
	ErrEntityMismatch = fmt.Errorf("entities do not match, %w", errkind.ErrValue)
	ErrIndexMismatch  = fmt.Errorf("entities do not share one time index, %w", errkind.ErrValue)
)

// Panel is a hierarchical series: one frame per entity key, every frame sharing the same time
// index and columns. A plain series is a panel with the single key "".
type Panel struct {
	Keys   []string
	Frames []*Frame
}

// NewPanel validates that every frame shares the index and columns of the first one
func NewPanel(keys []string, frames []*Frame) (*Panel, error) {
	if len(keys) == 0 {
		return nil, ErrNoEntities
	}
	if len(keys) != len(frames) {
		return nil, fmt.Errorf("%d keys for %d frames, %w", len(keys), len(frames), ErrEntityMismatch)
	}
	seen := make(map[string]struct{}, len(keys))
	for i, key := range keys {
		if _, exists := seen[key]; exists {
			return nil, fmt.Errorf("key %q, %w", key, ErrDuplicateKey)
		}
		seen[key] = struct{}{}
		if frames[i] == nil {
			return nil, fmt.Errorf("entity %q, %w", key, ErrNoTrainingData)
		}
		if i == 0 {
			continue
		}
		if !slices.EqualFunc(frames[0].T, frames[i].T, time.Time.Equal) {
			return nil, fmt.Errorf("entity %q, %w", key, ErrIndexMismatch)
		}
		if !slices.Equal(frames[0].Columns, frames[i].Columns) {
			return nil, fmt.Errorf("entity %q, %w", key, ErrColumnMismatch)
		}
	}
	return &Panel{
		Keys:   slices.Clone(keys),
		Frames: slices.Clone(frames),
	}, nil
}

// SinglePanel wraps a frame as a non-hierarchical panel
func SinglePanel(f *Frame) *Panel {
	return &Panel{Keys: []string{""}, Frames: []*Frame{f}}
}

// IsHierarchical reports whether the panel holds more than the anonymous entity
func (p *Panel) IsHierarchical() bool {
	return len(p.Keys) > 1 || p.Keys[0] != ""
}

// Len returns the number of time points per entity
func (p *Panel) Len() int {
	return p.Frames[0].Len()
}

// Index returns the time index shared by all entities
func (p *Panel) Index() TimeSlice {
	return p.Frames[0].Index()
}

// Freq returns the fixed frequency shared by all entities
func (p *Panel) Freq() (time.Duration, error) {
	return p.Frames[0].Freq()
}

// Columns returns the column names shared by all entities
func (p *Panel) Columns() []string {
	return p.Frames[0].Columns
}

// Copy returns a deep copy of the panel
func (p *Panel) Copy() *Panel {
	return p.Slice(0, p.Len())
}

// Slice returns a copy of the rows in [i, j) for every entity
func (p *Panel) Slice(i, j int) *Panel {
	frames := make([]*Frame, len(p.Frames))
	for e, f := range p.Frames {
		frames[e] = f.Slice(i, j)
	}
	return &Panel{Keys: slices.Clone(p.Keys), Frames: frames}
}

// Append extends every entity with the matching entity of other
func (p *Panel) Append(other *Panel) (*Panel, error) {
	if !slices.Equal(p.Keys, other.Keys) {
		return nil, fmt.Errorf("expected %v, but got %v, %w", p.Keys, other.Keys, ErrEntityMismatch)
	}
	frames := make([]*Frame, len(p.Frames))
	for e, f := range p.Frames {
		next, err := f.Append(other.Frames[e])
		if err != nil {
			return nil, fmt.Errorf("unable to append entity %q, %w", p.Keys[e], err)
		}
		frames[e] = next
	}
	return &Panel{Keys: slices.Clone(p.Keys), Frames: frames}, nil
}

// AsPanel converts any recognized series container into a panel. Recognized containers are
// TimeDataset, Frame and Panel, by value or pointer.
func AsPanel(v any) (*Panel, error) {
	switch y := v.(type) {
	case *Panel:
		if y == nil {
			return nil, ErrNoEntities
		}
		return NewPanel(y.Keys, y.Frames)
	case Panel:
		return NewPanel(y.Keys, y.Frames)
	case *Frame:
		if y == nil {
			return nil, ErrNoTrainingData
		}
		return SinglePanel(y), nil
	case Frame:
		return SinglePanel(&y), nil
	case *TimeDataset:
		f, err := y.Frame()
		if err != nil {
			return nil, err
		}
		return SinglePanel(f), nil
	case TimeDataset:
		f, err := y.Frame()
		if err != nil {
			return nil, err
		}
		return SinglePanel(f), nil
	default:
		return nil, fmt.Errorf("input of type %T, %w", v, ErrUnsupportedType)
	}
}
