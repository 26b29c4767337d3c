package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	// infoExport is the guest function returning the packed ptr/len of the
	// JSON encoded values.PluginInfo.
	infoExport = "plugin_info"

	hostModule = "env"
)

// WasmLoader instantiates plugins shipped as .wasm entries on the search
// path. Each load creates a fresh module instance.
type WasmLoader struct {
	BaseLoader
	runtime wazero.Runtime
	path    *SearchPath
	logger  *slog.Logger
	seq     atomic.Uint64
}

// NewWasmLoader creates the wazero runtime and registers the host module.
func NewWasmLoader(ctx context.Context, path *SearchPath, logger *slog.Logger) (*WasmLoader, error) {
	l := &WasmLoader{
		runtime: wazero.NewRuntime(ctx),
		path:    path,
		logger:  logger,
	}

	_, err := l.runtime.NewHostModuleBuilder(hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.logMessage), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("log_message").
		Instantiate(ctx)
	if err != nil {
		_ = l.runtime.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}
	return l, nil
}

// Load instantiates <class path>.wasm, otherwise delegates to next.
// With a source only that source is read; without one the first source
// on the search path holding the entry wins.
func (l *WasmLoader) Load(ctx context.Context, source, className string) (entities.Plugin, error) {
	entry := entryName(className, ".wasm")

	var (
		data []byte
		from = source
		ok   bool
		err  error
	)
	if source != "" {
		data, ok, err = l.path.ReadFileFrom(source, entry)
	} else {
		data, from, ok, err = l.path.ReadFile(entry)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return l.LoadNext(ctx, source, className)
	}

	compiled, err := l.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, &entities.InstantiationError{ClassName: className, Err: err}
	}

	name := fmt.Sprintf("%s#%d", className, l.seq.Add(1))
	mod, err := l.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, &entities.InstantiationError{ClassName: className, Err: err}
	}

	p := &WasmPlugin{module: mod, compiled: compiled, source: from}
	if err := p.readInfo(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, &entities.InstantiationError{ClassName: className, Err: err}
	}
	return p, nil
}

// Close releases the runtime and every module instantiated by it.
func (l *WasmLoader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

type logMessage struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// logMessage implements the log_message host function. The single i64
// argument packs the ptr/len of a JSON encoded logMessage.
func (l *WasmLoader) logMessage(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, length := unpackPtrLen(stack[0])
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		l.logger.ErrorContext(ctx, "wasm: failed to read log message from guest memory", "module", mod.Name())
		return
	}

	var msg logMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		l.logger.ErrorContext(ctx, "wasm: failed to unmarshal log message", "module", mod.Name(), "error", err)
		return
	}

	attrs := make([]slog.Attr, 0, len(msg.Attrs)+1)
	attrs = append(attrs, slog.String("module", mod.Name()))
	for k, v := range msg.Attrs {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.LogAttrs(ctx, parseLogLevel(msg.Level), msg.Message, attrs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func unpackPtrLen(packed uint64) (uint32, uint32) {
	//nolint:gosec // WASM pointers and lengths are 32-bit
	return uint32(packed >> 32), uint32(packed)
}

// WasmPlugin is a plugin backed by a wasm module instance.
type WasmPlugin struct {
	module   api.Module
	compiled wazero.CompiledModule
	source   string
	info     values.PluginInfo
}

func (p *WasmPlugin) readInfo(ctx context.Context) error {
	fn := p.module.ExportedFunction(infoExport)
	if fn == nil {
		return fmt.Errorf("function %q not exported", infoExport)
	}
	res, err := fn.Call(ctx)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", infoExport, err)
	}
	if len(res) != 1 {
		return fmt.Errorf("%s returned %d values, want 1", infoExport, len(res))
	}

	mem := p.module.Memory()
	if mem == nil {
		return fmt.Errorf("module does not export memory")
	}
	ptr, length := unpackPtrLen(res[0])
	data, ok := mem.Read(ptr, length)
	if !ok {
		return fmt.Errorf("failed to read plugin info from memory at ptr=%d, len=%d", ptr, length)
	}
	if err := json.Unmarshal(data, &p.info); err != nil {
		return fmt.Errorf("invalid plugin info: %w", err)
	}
	return nil
}

// Info returns the info reported by the module at load time.
func (p *WasmPlugin) Info() values.PluginInfo {
	return p.info
}

// Source returns the archive or directory the module was read from.
func (p *WasmPlugin) Source() string {
	return p.source
}

// Close releases the module instance.
func (p *WasmPlugin) Close(ctx context.Context) error {
	err := p.module.Close(ctx)
	if cerr := p.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
