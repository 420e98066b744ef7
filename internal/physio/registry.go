package physio

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/physutils/internal/ir"
)

// Call is what replay passes to an Operation.
type Call struct {
	// Receiver is the current Signal, nil for a seed load.
	Receiver *Signal

	// Args are the recorded arguments of the entry.
	Args ir.Object

	// Logger receives the operation's log records.
	Logger *slog.Logger
}

// Operation is a replayable operation. It must return a new Signal and
// must not modify the receiver.
type Operation func(call Call) (*Signal, error)

// Registry maps qualified operation names to operations. It is populated
// from init functions of the packages that define replayable operations
// and read afterwards; it is not safe for concurrent registration.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// DefaultRegistry holds every operation registered via Register.
var DefaultRegistry = NewRegistry()

// Register adds op to DefaultRegistry.
func Register(name string, op Operation) {
	DefaultRegistry.Register(name, op)
}

// Register adds op under name. It panics if name is not a qualified
// "scope.operation" name or is already registered: both are programming
// errors caught at process start.
func (r *Registry) Register(name string, op Operation) {
	if op == nil {
		panic("physio: Register with nil operation for " + name)
	}
	if i := strings.LastIndex(name, "."); i <= 0 || i == len(name)-1 {
		panic("physio: operation name must be scope.operation, got " + name)
	}
	if _, dup := r.ops[name]; dup {
		panic("physio: operation registered twice: " + name)
	}
	r.ops[name] = op
}

// Lookup resolves a qualified name. A miss is an UNKNOWN_OPERATION error
// that says whether the whole scope is unavailable or only the operation.
func (r *Registry) Lookup(name string) (Operation, error) {
	if op, ok := r.ops[name]; ok {
		return op, nil
	}
	scope := ir.NewEntry(name, nil).Scope()
	if scope == "" || !r.HasScope(scope) {
		return nil, NewUnknownOperationError(name,
			fmt.Sprintf("scope %q is not available in this build", scope))
	}
	return nil, NewUnknownOperationError(name,
		fmt.Sprintf("scope %q has no operation %q", scope, ir.NewEntry(name, nil).Operation()))
}

// HasScope reports whether any operation is registered in scope or in a
// scope nested below it ("peakdet" covers "peakdet.operations.x").
func (r *Registry) HasScope(scope string) bool {
	prefix := scope + "."
	for name := range r.ops {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsLoadOperation reports whether the bare operation name of a qualified
// name carries the load marker.
func IsLoadOperation(name string) bool {
	return ir.NewEntry(name, nil).IsLoad()
}

func init() {
	Register(LoadPhysioOp, loadPhysio)
}

// loadPhysio replays a Load call. Without a receiver it is a seed load
// from the recorded "data" path; with one it re-derives from the receiver.
func loadPhysio(call Call) (*Signal, error) {
	opts, err := LoadOptionsFromArgs(call.Args)
	if err != nil {
		return nil, err
	}
	opts.Logger = call.Logger

	if call.Receiver != nil {
		return Load(ContainerSource{Signal: call.Receiver}, opts)
	}
	path, ok := call.Args.GetString("data")
	if !ok {
		return nil, &Error{
			Code:      ErrCodeInvalidArgument,
			Message:   "seed load requires a string \"data\" path argument",
			Operation: LoadPhysioOp,
		}
	}
	return Load(PathSource(path), opts)
}
