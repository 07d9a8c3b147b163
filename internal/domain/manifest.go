package domain

// PropagationMode describes how a node's output classification derives
// from its input and production set (spec.md §3).
type PropagationMode string

const (
	PropagationNone        PropagationMode = "NONE"
	PropagationPassThrough PropagationMode = "PASS_THROUGH"
	PropagationDerive      PropagationMode = "DERIVE"
	PropagationTransform   PropagationMode = "TRANSFORM"
)

// Mode describes an egress or write capability's reach.
type Mode string

const (
	ModeNone     Mode = "NONE"
	ModeInternal Mode = "INTERNAL"
	ModeExternal Mode = "EXTERNAL"
)

// NetworkCapability constrains which domains a node is allowed to contact.
type NetworkCapability struct {
	AllowDomains []string
	DenyDomains  []string
}

// Capabilities describes what a node type is capable of doing to data and
// systems, independent of any particular tenant's policy.
type Capabilities struct {
	Egress           Mode
	Writes           Mode
	Deletes          bool
	PrivilegedAccess bool
	Network          NetworkCapability
}

// DataEffect describes a node type's effect on data classification.
type DataEffect struct {
	Consumes                    []Classification
	Produces                    []Classification
	Propagation                 PropagationMode
	OutputClassificationOverride *Classification
}

// RetryPolicy is a node type's default retry behavior.
type RetryPolicy struct {
	Max       int `json:"max"`
	BackoffMs int `json:"backoffMs"`
}

// RuntimeProfile is a node type's runtime contract. Idempotent,
// DefaultRetry and TimeoutMs are copied onto the Step that uses it;
// Retryable is not (spec.md §4.6).
type RuntimeProfile struct {
	Idempotent  bool
	Retryable   bool
	DefaultRetry RetryPolicy
	TimeoutMs   int
}

// ControlsProfile is a node type's declared control support.
type ControlsProfile struct {
	Requires []ControlType
	Supports []ControlType
}

// NodeManifest is the static per-type contract a node's behavior must
// conform to (spec.md §3).
type NodeManifest struct {
	Data         DataEffect
	Capabilities Capabilities
	Controls     ControlsProfile
	Runtime      RuntimeProfile
}

// ConservativeDefaultManifest is substituted whenever a node's type has no
// registered manifest (spec.md §3). It assumes the worst: external egress
// and writes, deletion and privileged access, PHI production, universal
// consumption, pass-through propagation, and a mandatory audit log.
func ConservativeDefaultManifest() NodeManifest {
	return NodeManifest{
		Data: DataEffect{
			Consumes:    []Classification{Unclassified, PII, PHI, PCI, Credentials},
			Produces:    []Classification{PHI},
			Propagation: PropagationPassThrough,
		},
		Capabilities: Capabilities{
			Egress:           ModeExternal,
			Writes:           ModeExternal,
			Deletes:          true,
			PrivilegedAccess: true,
		},
		Controls: ControlsProfile{
			Requires: []ControlType{ControlAuditLog},
		},
		Runtime: RuntimeProfile{
			Idempotent: false,
			Retryable:  false,
		},
	}
}

// ManifestRegistry resolves a node type to its manifest, falling back to
// the conservative default when a type is unregistered. It is a plain map
// lookup with no locking; the map is only read after construction.
type ManifestRegistry struct {
	byType map[string]NodeManifest
}

// NewManifestRegistry wraps a caller-supplied map of type name to
// manifest. The map is not copied; callers should treat it as read-only
// for the lifetime of the registry (Lifecycle, spec.md §3).
func NewManifestRegistry(manifests map[string]NodeManifest) *ManifestRegistry {
	return &ManifestRegistry{byType: manifests}
}

// Resolve returns the manifest registered for typeName, or the
// conservative default if none is registered. The second return value
// reports whether a real manifest was found.
func (r *ManifestRegistry) Resolve(typeName string) (NodeManifest, bool) {
	if r != nil && r.byType != nil {
		if m, ok := r.byType[typeName]; ok {
			return m, true
		}
	}
	return ConservativeDefaultManifest(), false
}
