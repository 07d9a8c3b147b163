package domain

// EndSentinel is the reserved output target meaning "leave this scope and
// terminate the workflow" (spec.md §3).
const EndSentinel = "END"

// DSLNode is a single node in the declarative bot definition. For leaf
// nodes, Children/Ports are empty. For container types, Children lists the
// node's immediate descendants (in DSL array order) and Ports maps a port
// name to the region of the container that port leads into.
type DSLNode struct {
	ID       string
	Type     string
	Config   Object
	Outputs  NodeOutputs
	Children []string
	Ports    map[string]ScopePort
}

// NodeOutputs names, per port, the next node id in the same scope, or the
// EndSentinel.
type NodeOutputs struct {
	Success string
	Error   string
	Done    string // empty means "no done port" (only container types emit done)
}

// HasDone reports whether this node declares a done output at all.
func (o NodeOutputs) HasDone() bool {
	return o.Done != ""
}

// ScopePort is one named region of a container node: an ordered list of
// node ids belonging to the region and the first node to run when control
// enters it.
type ScopePort struct {
	NodeIDs []string
	EntryID string
}

// BotMeta carries the bot identity fields nested under DSLRoot.Bot.
type BotMeta struct {
	ID          string
	Name        string
	Description string
}

// DSLRoot is the top-level declarative bot definition handed to the
// compiler. It is read-only input — the compiler never mutates it
// (spec.md §3, Lifecycle).
type DSLRoot struct {
	Version   string
	Bot       BotMeta
	Nodes     []DSLNode
	Variables Object
	Triggers  []string
}

// NodeByID indexes Nodes by id for O(1) lookup. It does not recurse into
// children separately — DSLRoot.Nodes is expected to already be a flat
// top-level list, with each container's own Children/Ports pointing back
// into node ids that are *also* present in this same flat list (the CFG
// builder is what interprets nesting).
func (r DSLRoot) NodeByID() map[string]*DSLNode {
	out := make(map[string]*DSLNode, len(r.Nodes))
	for i := range r.Nodes {
		out[r.Nodes[i].ID] = &r.Nodes[i]
	}
	return out
}

// Container node type prefixes recognized for exhaustive port handling
// (spec.md §3, "Container types").
const (
	ContainerIf        = "control.if"
	ContainerTryCatch  = "control.try_catch"
	ContainerLoop      = "control.loop"
	ContainerWhile     = "control.while"
	ContainerSwitch    = "control.switch"
	ContainerParallel  = "control.parallel"
	ContainerBreak     = "control.break"
	ContainerContinue  = "control.continue"
)

// PortThen, PortElse, ... are the well-known port names referenced by the
// exhaustive container types.
const (
	PortThen    = "then"
	PortElse    = "else"
	PortTry     = "try"
	PortCatch   = "catch"
	PortBody    = "body"
	PortDefault = "default"
)

const (
	casePrefix   = "case_"
	branchPrefix = "branch_"
)
