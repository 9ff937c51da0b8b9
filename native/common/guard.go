package common

import "errors"

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects calls into a paused module. A nil view never pauses.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a PauseView over a fixed set of module names, typically
// loaded from configuration.
type StaticPauses map[string]struct{}

// NewStaticPauses builds a pause set from module names.
func NewStaticPauses(modules ...string) StaticPauses {
	set := make(StaticPauses, len(modules))
	for _, module := range modules {
		if module == "" {
			continue
		}
		set[module] = struct{}{}
	}
	return set
}

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(module string) bool {
	_, ok := s[module]
	return ok
}
