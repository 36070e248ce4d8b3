package ops

import (
	"os"
	"sync"
	"time"

	"main/internal/model"
	"main/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Source yields the current list of per-symbol setups. Implementations may
// change the list between calls; callers re-read it every iteration.
type Source interface {
	Setups() []model.Setup
	Lookup(symbol string) (model.Setup, bool)
}

// FileSource reloads a JSON setups file whenever its modification time
// changes. A file caught mid-write keeps the previous cached setups.
type FileSource struct {
	path string

	mu      sync.Mutex
	lastMod time.Time
	cached  []model.Setup
}

// NewFileSource loads the setups file once up front. It refuses an empty or
// fully invalid file so the trader never starts with nothing to do.
func NewFileSource(path string) (*FileSource, error) {
	src := &FileSource{path: path}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat setups file").With("path", path)
	}
	setups, err := readSetups(path)
	if err != nil {
		return nil, err
	}
	if len(setups) == 0 {
		return nil, errors.Wrap(exception.ErrNoSetups, "setups file").With("path", path)
	}

	src.cached = setups
	src.lastMod = info.ModTime()
	return src, nil
}

// Setups returns the current setups, reloading the file first if its
// modification time moved. Reload failures keep the cache.
func (s *FileSource) Setups() []model.Setup {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		logs.Warnf("setups stat failed, keeping cache, err: %+v", err)
		return copySetups(s.cached)
	}
	if info.ModTime().After(s.lastMod) {
		setups, err := readSetups(s.path)
		if err != nil {
			// File mid-modification. Retry on the next call.
			logs.Warnf("setups reload failed, keeping cache, err: %+v", err)
			return copySetups(s.cached)
		}
		s.cached = setups
		s.lastMod = info.ModTime()
		logs.Infof("setups reloaded: %d symbols", len(setups))
	}
	return copySetups(s.cached)
}

// Lookup finds the current setup for one symbol.
func (s *FileSource) Lookup(symbol string) (model.Setup, bool) {
	for _, setup := range s.Setups() {
		if setup.Symbol == symbol {
			return setup, true
		}
	}
	return model.Setup{}, false
}

func readSetups(path string) ([]model.Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read setups file").With("path", path)
	}
	var raw []model.Setup
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshal setups file").With("path", path)
	}

	setups := make([]model.Setup, 0, len(raw))
	for _, setup := range raw {
		if err := setup.Validate(); err != nil {
			logs.Warnf("skipping setup, err: %+v", err)
			continue
		}
		setups = append(setups, setup)
	}
	return setups, nil
}

func copySetups(setups []model.Setup) []model.Setup {
	out := make([]model.Setup, len(setups))
	copy(out, setups)
	return out
}

// StaticSource serves a fixed, mutable setup list. Used by tests and tools.
type StaticSource struct {
	mu     sync.Mutex
	setups []model.Setup
}

func NewStaticSource(setups ...model.Setup) *StaticSource {
	return &StaticSource{setups: setups}
}

func (s *StaticSource) Setups() []model.Setup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySetups(s.setups)
}

func (s *StaticSource) Lookup(symbol string) (model.Setup, bool) {
	for _, setup := range s.Setups() {
		if setup.Symbol == symbol {
			return setup, true
		}
	}
	return model.Setup{}, false
}

// Replace swaps the whole setup list.
func (s *StaticSource) Replace(setups ...model.Setup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setups = copySetups(setups)
}

// Remove drops one symbol from the list.
func (s *StaticSource) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.setups[:0]
	for _, setup := range s.setups {
		if setup.Symbol != symbol {
			kept = append(kept, setup)
		}
	}
	s.setups = kept
}

// Symbols lists the symbols of every setup in the source.
func Symbols(src Source) []string {
	setups := src.Setups()
	symbols := make([]string, 0, len(setups))
	for _, setup := range setups {
		symbols = append(symbols, setup.Symbol)
	}
	return symbols
}
