package plugin

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// StubPlugin is a plugin reporting fixed info.
type StubPlugin struct {
	PluginInfo values.PluginInfo
	Missing    []values.Dependency
	CloseErr   error

	mu     sync.Mutex
	closed bool
}

func (p *StubPlugin) Info() values.PluginInfo {
	return p.PluginInfo
}

func (p *StubPlugin) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

// Closed reports whether Close was called.
func (p *StubPlugin) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// CheckingPlugin is a StubPlugin that also reports custom missing
// dependencies.
type CheckingPlugin struct {
	StubPlugin
}

func (p *CheckingPlugin) MissingDependencies(context.Context, entities.InstalledLookup) []values.Dependency {
	return p.Missing
}

// MockLoader implements ports.Loader
type MockLoader struct {
	// Factories create a new instance per load.
	Factories map[string]func() entities.Plugin

	// SourceClasses maps a source to the classes it declares.
	SourceClasses map[string][]string

	AddSourceErr error
	LoadErr      map[string]error

	mu      sync.Mutex
	sources []string
	loaded  map[string][]entities.Plugin
}

// NewMockLoader creates an empty MockLoader.
func NewMockLoader() *MockLoader {
	return &MockLoader{
		Factories:     make(map[string]func() entities.Plugin),
		SourceClasses: make(map[string][]string),
		LoadErr:       make(map[string]error),
		loaded:        make(map[string][]entities.Plugin),
	}
}

// Register adds a class whose instances report info.
func (m *MockLoader) Register(className string, info values.PluginInfo) {
	m.Factories[className] = func() entities.Plugin {
		return &StubPlugin{PluginInfo: info}
	}
}

func (m *MockLoader) AddSource(ctx context.Context, path string) error {
	if m.AddSourceErr != nil {
		return m.AddSourceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s == path {
			return nil
		}
	}
	m.sources = append(m.sources, path)
	return nil
}

func (m *MockLoader) RemoveSource(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sources {
		if s == path {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			return
		}
	}
}

func (m *MockLoader) Load(ctx context.Context, source, className string) (entities.Plugin, error) {
	if err := m.LoadErr[className]; err != nil {
		return nil, err
	}
	f, ok := m.Factories[className]
	if !ok {
		return nil, &entities.ClassNotFoundError{ClassName: className}
	}
	p := f()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded[className] = append(m.loaded[className], p)
	return p, nil
}

func (m *MockLoader) Classes(ctx context.Context, path string) ([]string, error) {
	classes, ok := m.SourceClasses[path]
	if !ok {
		return nil, &entities.ClassNotFoundError{ClassName: path}
	}
	return classes, nil
}

// Sources returns the search path.
func (m *MockLoader) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sources...)
}

// Loaded returns the instances created for a class.
func (m *MockLoader) Loaded(className string) []entities.Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Plugin(nil), m.loaded[className]...)
}

// MockRepository implements ports.DescriptorRepository in memory.
type MockRepository struct {
	Files   map[string]*entities.DescriptorFile
	LoadErr error
	SaveErr error
	StatErr error

	mu        sync.Mutex
	loadCalls int
}

// NewMockRepository creates an empty MockRepository.
func NewMockRepository() *MockRepository {
	return &MockRepository{Files: make(map[string]*entities.DescriptorFile)}
}

func (m *MockRepository) Load(ctx context.Context, path string) (*entities.DescriptorFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Files[path], nil
}

// LoadCalls returns how often Load was called.
func (m *MockRepository) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

func (m *MockRepository) Save(ctx context.Context, file *entities.DescriptorFile, path string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[path] = file
	return nil
}

func (m *MockRepository) Exists(ctx context.Context, path string) (bool, error) {
	if m.StatErr != nil {
		return false, m.StatErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Files[path]
	return ok, nil
}

// RecordingListener records every event it receives.
type RecordingListener struct {
	Err   error
	Panic bool

	mu     sync.Mutex
	events []Event
}

func (l *RecordingListener) OnPluginEvent(e Event) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	if l.Panic {
		panic("listener panic")
	}
	return l.Err
}

// Events returns the received events.
func (l *RecordingListener) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Reset forgets the received events.
func (l *RecordingListener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
