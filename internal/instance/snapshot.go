package instance

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lua-embed/luabridge/internal/luaerr"
	"github.com/lua-embed/luabridge/internal/value"
)

// SnapshotPolicy bounds the snapshot manager by count and total bytes
// (spec.md §4.8).
type SnapshotPolicy struct {
	MaxCount      int
	MaxTotalBytes int64
}

// Snapshot is one stored point-in-time capture of an instance's globals.
type Snapshot struct {
	ID           string
	Description  string
	CreatedAt    time.Time
	GCPause      int
	GCStepMul    int
	IntegritySum [32]byte
	Payload      []byte // msgpack-encoded []wireNode
	SizeBytes    int64
}

// wireNode is the msgpack-serializable projection of value.Value: a tagged
// union flattened into one struct, since msgpack (like the Open Question
// #2 decision on Function values) cannot carry Go interfaces directly.
// Array/Object children are indices into the same flat slice. Every
// occurrence of a value is flattened into its own node, so a table reached
// twice is restored as two distinct copies; shared identity is not kept.
type wireNode struct {
	Kind     int
	Bool     bool
	Int      int64
	Num      float64
	Str      []byte
	Children []int // Array element indexes, or Object value indexes parallel to Keys
	Keys     []string
}

// SnapshotManager owns a bounded set of Snapshots for one instance
// (spec.md §4.8). Eviction follows oldest-first once MaxCount or
// MaxTotalBytes would be exceeded.
type SnapshotManager struct {
	mu       sync.Mutex
	policy   SnapshotPolicy
	order    []string
	byID     map[string]*Snapshot
	totalLen int64
}

// NewSnapshotManager constructs an empty manager bounded by policy.
func NewSnapshotManager(policy SnapshotPolicy) *SnapshotManager {
	if policy.MaxCount <= 0 {
		policy.MaxCount = 16
	}
	return &SnapshotManager{policy: policy, byID: make(map[string]*Snapshot)}
}

// CreateSnapshot serializes globals (already pulled into a value.Object by
// the caller via stackconv) into a new Snapshot, evicting the oldest
// entries until the manager is within policy.
func (m *SnapshotManager) CreateSnapshot(id, description string, globals *value.Object, gcPause, gcStepMul int) (*Snapshot, error) {
	if id == "" {
		id = uuid.NewString()
	}

	nodes := flatten(globals)
	payload, err := msgpack.Marshal(nodes)
	if err != nil {
		return nil, luaerr.MemoryError("snapshot encode failed: " + err.Error())
	}

	snap := &Snapshot{
		ID:           id,
		Description:  description,
		CreatedAt:    time.Now(),
		GCPause:      gcPause,
		GCStepMul:    gcStepMul,
		IntegritySum: sha256.Sum256(payload),
		Payload:      payload,
		SizeBytes:    int64(len(payload)),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[id]; exists {
		return nil, luaerr.RuntimeError("snapshot id already exists: " + id)
	}
	m.byID[id] = snap
	m.order = append(m.order, id)
	m.totalLen += snap.SizeBytes
	m.evictLocked()
	return snap, nil
}

func (m *SnapshotManager) evictLocked() {
	for (len(m.order) > m.policy.MaxCount) ||
		(m.policy.MaxTotalBytes > 0 && m.totalLen > m.policy.MaxTotalBytes) {
		if len(m.order) == 0 {
			break
		}
		oldest := m.order[0]
		m.order = m.order[1:]
		if s, ok := m.byID[oldest]; ok {
			m.totalLen -= s.SizeBytes
			delete(m.byID, oldest)
		}
	}
}

// Get returns the snapshot by id, verifying its integrity hash.
func (m *SnapshotManager) Get(id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, luaerr.SnapshotNotFoundError(id)
	}
	if sha256.Sum256(s.Payload) != s.IntegritySum {
		return nil, luaerr.RuntimeError("snapshot integrity check failed: " + id)
	}
	return s, nil
}

// Restore decodes s's payload back into a value.Object, rebuilding each
// node from the flat node index. Because CreateSnapshot flattens every
// occurrence separately, values that were shared before the snapshot come
// back as separate copies; shared identity is not re-established.
func (m *SnapshotManager) Restore(s *Snapshot) (*value.Object, error) {
	var nodes []wireNode
	if err := msgpack.Unmarshal(s.Payload, &nodes); err != nil {
		return nil, luaerr.MemoryError("snapshot decode failed: " + err.Error())
	}
	if len(nodes) == 0 {
		return value.NewObject(), nil
	}
	built := make([]value.Value, len(nodes))
	visiting := make([]bool, len(nodes))
	root, err := rebuild(nodes, 0, built, visiting)
	if err != nil {
		return nil, err
	}
	obj, ok := root.(*value.Object)
	if !ok {
		return nil, luaerr.RuntimeError("snapshot root is not an object")
	}
	return obj, nil
}

func flatten(globals *value.Object) []wireNode {
	var nodes []wireNode
	flattenValue(globals, &nodes)
	return nodes
}

func flattenValue(v value.Value, nodes *[]wireNode) int {
	idx := len(*nodes)
	*nodes = append(*nodes, wireNode{}) // reserve slot
	switch t := v.(type) {
	case value.Nil, nil:
		(*nodes)[idx] = wireNode{Kind: int(value.KindNil)}
	case value.Boolean:
		(*nodes)[idx] = wireNode{Kind: int(value.KindBoolean), Bool: bool(t)}
	case value.Integer:
		(*nodes)[idx] = wireNode{Kind: int(value.KindInteger), Int: int64(t)}
	case value.Number:
		(*nodes)[idx] = wireNode{Kind: int(value.KindNumber), Num: float64(t)}
	case *value.String:
		(*nodes)[idx] = wireNode{Kind: int(value.KindString), Str: append([]byte(nil), t.Bytes...)}
	case *value.Array:
		children := make([]int, len(t.Elements))
		for i, e := range t.Elements {
			children[i] = flattenValue(e, nodes)
		}
		(*nodes)[idx] = wireNode{Kind: int(value.KindArray), Children: children}
	case *value.Object:
		keys := t.Keys()
		children := make([]int, len(keys))
		for i, k := range keys {
			fv, _ := t.Get(k)
			children[i] = flattenValue(fv, nodes)
		}
		(*nodes)[idx] = wireNode{Kind: int(value.KindObject), Keys: keys, Children: children}
	case *value.Function:
		// Open Question #2: functions are not restorable; record a marker.
		(*nodes)[idx] = wireNode{Kind: int(value.KindFunction), Str: []byte(t.Handle.Name())}
	default:
		(*nodes)[idx] = wireNode{Kind: int(value.KindNil)}
	}
	return idx
}

func rebuild(nodes []wireNode, idx int, built []value.Value, visiting []bool) (value.Value, error) {
	if idx < 0 || idx >= len(nodes) {
		return nil, luaerr.RuntimeError("snapshot references out-of-range node")
	}
	if built[idx] != nil {
		return built[idx], nil
	}
	if visiting[idx] {
		return nil, luaerr.RuntimeError("snapshot contains an unresolved cycle at decode time")
	}
	visiting[idx] = true
	defer func() { visiting[idx] = false }()

	n := nodes[idx]
	switch value.Kind(n.Kind) {
	case value.KindNil:
		built[idx] = value.Nil{}
	case value.KindBoolean:
		built[idx] = value.Boolean(n.Bool)
	case value.KindInteger:
		built[idx] = value.Integer(n.Int)
	case value.KindNumber:
		built[idx] = value.Number(n.Num)
	case value.KindString:
		built[idx] = &value.String{Bytes: n.Str}
	case value.KindArray:
		elems := make([]value.Value, len(n.Children))
		for i, c := range n.Children {
			cv, err := rebuild(nodes, c, built, visiting)
			if err != nil {
				return nil, err
			}
			elems[i] = cv
		}
		built[idx] = &value.Array{Elements: elems}
	case value.KindObject:
		obj := value.NewObject()
		for i, k := range n.Keys {
			cv, err := rebuild(nodes, n.Children[i], built, visiting)
			if err != nil {
				return nil, err
			}
			obj.Set(k, cv)
		}
		built[idx] = obj
	case value.KindFunction:
		// dropped per Open Question #2: functions restore as Nil.
		built[idx] = value.Nil{}
	default:
		built[idx] = value.Nil{}
	}
	return built[idx], nil
}
