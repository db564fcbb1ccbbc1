package domain

// NodeKind classifies a topology node.
type NodeKind string

// Topology node kinds.
const (
	NodeTable     NodeKind = "table"
	NodeProcedure NodeKind = "procedure"
	NodeTrigger   NodeKind = "trigger"
	NodeColumn    NodeKind = "column"
)

// TopologyNode is one node of a lineage graph. ID is a content-addressed
// hash of (kind, qualified name), so identical lineage state always
// yields byte-identical graph structure.
type TopologyNode struct {
	ID    string
	Kind  NodeKind
	Label string
	// Cycle marks a node whose expansion was truncated because it was
	// already on the current traversal path.
	Cycle bool
}

// TopologyEdge is a directed edge from a writer source to its target,
// labeled with the statement kind and column name.
type TopologyEdge struct {
	ID     string
	Source string
	Target string
	Kind   WriterKind
	Column string
}

// Topology is the node/edge graph representation of a lineage, suitable
// for rendering. Nodes and edges are sorted by ID so serialization is
// independent of traversal order.
type Topology struct {
	Nodes []TopologyNode
	Edges []TopologyEdge
}
