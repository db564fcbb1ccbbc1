// Package topology turns a resolved dependency entry into a directed
// lineage graph with content-addressed node and edge identifiers.
package topology

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"dota/internal/depindex"
	"dota/internal/domain"
	"dota/internal/snapshot"
	"dota/internal/tsqlscan"
)

// Depth limits for upstream expansion. The hard cap applies regardless
// of configuration.
const (
	DefaultMaxDepth = 2
	HardDepthCap    = 10
)

// Builder constructs lineage graphs over one snapshot. Upstream
// expansion reuses the dependency index, so repeated builds against the
// same generation stay cheap.
type Builder struct {
	snap     *snapshot.Snapshot
	idx      *depindex.Index
	maxDepth int
}

// NewBuilder creates a Builder with the given upstream depth, clamped
// to [0, HardDepthCap]. A negative depth uses DefaultMaxDepth.
func NewBuilder(snap *snapshot.Snapshot, idx *depindex.Index, maxDepth int) *Builder {
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > HardDepthCap {
		maxDepth = HardDepthCap
	}
	return &Builder{snap: snap, idx: idx, maxDepth: maxDepth}
}

// Build produces the lineage graph for one resolved (table, column)
// entry: the target table node, one node per distinct writer source,
// one edge per writer, and upstream tables expanded to the depth limit.
func (b *Builder) Build(table *domain.Table, entry *domain.DependencyEntry) *domain.Topology {
	g := newGraph()
	path := map[string]struct{}{}
	b.expand(g, table, entry, path, 0)
	return g.finish()
}

// expand adds one table's writers to the graph and recurses into
// upstream source tables. path holds the node IDs on the current
// traversal path only; revisiting one truncates the branch and marks
// the node as a cycle.
func (b *Builder) expand(g *graph, table *domain.Table, entry *domain.DependencyEntry, path map[string]struct{}, depth int) {
	ref := table.Ref()
	tableID := g.addNode(domain.NodeTable, ref.Qualified())
	path[tableID] = struct{}{}
	defer delete(path, tableID)

	for i := range entry.Writers {
		w := &entry.Writers[i]
		srcID := b.writerSource(g, w)
		g.addEdge(srcID, tableID, w.Kind, w.Column)

		if !expandsUpstream(w.Kind) || depth >= b.maxDepth {
			continue
		}
		for _, up := range b.upstreamTables(w, ref) {
			upID := nodeID(domain.NodeTable, up.Ref().Qualified())
			if _, onPath := path[upID]; onPath {
				g.markCycle(upID)
				continue
			}
			g.addNode(domain.NodeTable, up.Ref().Qualified())
			g.addEdge(upID, srcID, w.Kind, w.Column)
			upEntry := b.idx.Entry(b.snap, up, entry.Column)
			b.expand(g, up, upEntry, path, depth+1)
		}
	}
}

// writerSource adds and returns the node a writer's edge originates
// from: the routine or trigger, or for metadata writers the column
// itself.
func (b *Builder) writerSource(g *graph, w *domain.Writer) string {
	if w.Routine != nil {
		kind := domain.NodeProcedure
		if w.Routine.Kind == domain.RoutineTrigger {
			kind = domain.NodeTrigger
		}
		return g.addNode(kind, w.Routine.Qualified())
	}
	return g.addNode(domain.NodeColumn, w.Table.Qualified()+"."+w.Column)
}

// expandsUpstream reports whether a writer kind carries a source query
// worth following to other tables.
func expandsUpstream(kind domain.WriterKind) bool {
	switch kind {
	case domain.WriterInsertSelect, domain.WriterMergeInsert, domain.WriterMergeUpdate:
		return true
	}
	return false
}

// upstreamTables resolves the tables a writer's source text reads from,
// excluding the write target itself. The full statement is scanned when
// available; the excerpt can cut off a long FROM clause.
func (b *Builder) upstreamTables(w *domain.Writer, exclude domain.TableRef) []*domain.Table {
	text := w.Statement
	if text == "" {
		text = w.Excerpt
	}
	names := fromClauseNames(text)
	var out []*domain.Table
	seen := map[string]struct{}{}
	for _, name := range names {
		for _, t := range b.snap.LookupTable(name) {
			tRef := t.Ref()
			if tRef.EqualFold(exclude) {
				continue
			}
			key := strings.ToLower(tRef.Qualified())
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// fromClauseNames scans a statement excerpt for object names following
// FROM or JOIN. It is lexical only; unresolvable names (aliases,
// inserted/deleted pseudo-tables) simply fail the snapshot lookup.
func fromClauseNames(text string) []string {
	toks := tsqlscan.Tokens(text)
	var names []string
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		isFrom := t.Type == tsqlscan.TOKEN_FROM
		isJoin := t.Type == tsqlscan.TOKEN_IDENT && strings.EqualFold(t.Literal, "join")
		if !isFrom && !isJoin {
			continue
		}
		j := i + 1
		name, next := readObjectName(toks, j)
		if name != "" {
			names = append(names, name)
		}
		i = next - 1
	}
	return names
}

// readObjectName reads IDENT (DOT IDENT)* starting at i, returning the
// dotted name and the index after it.
func readObjectName(toks []tsqlscan.Token, i int) (string, int) {
	if i >= len(toks) || toks[i].Type != tsqlscan.TOKEN_IDENT {
		return "", i
	}
	parts := []string{toks[i].Literal}
	i++
	for i+1 < len(toks) && toks[i].Type == tsqlscan.TOKEN_DOT && toks[i+1].Type == tsqlscan.TOKEN_IDENT {
		parts = append(parts, toks[i+1].Literal)
		i += 2
	}
	return strings.Join(parts, "."), i
}

// graph accumulates nodes and edges keyed by ID, deduplicating as the
// traversal revisits shared sources.
type graph struct {
	nodes map[string]*domain.TopologyNode
	edges map[string]domain.TopologyEdge
}

func newGraph() *graph {
	return &graph{
		nodes: map[string]*domain.TopologyNode{},
		edges: map[string]domain.TopologyEdge{},
	}
}

func (g *graph) addNode(kind domain.NodeKind, label string) string {
	id := nodeID(kind, label)
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = &domain.TopologyNode{ID: id, Kind: kind, Label: label}
	}
	return id
}

func (g *graph) markCycle(id string) {
	if n, ok := g.nodes[id]; ok {
		n.Cycle = true
	}
}

func (g *graph) addEdge(source, target string, kind domain.WriterKind, column string) {
	id := edgeID(source, target, kind, column)
	if _, ok := g.edges[id]; !ok {
		g.edges[id] = domain.TopologyEdge{ID: id, Source: source, Target: target, Kind: kind, Column: column}
	}
}

// finish returns the graph with nodes and edges sorted by ID, so the
// output is independent of traversal order.
func (g *graph) finish() *domain.Topology {
	out := &domain.Topology{
		Nodes: make([]domain.TopologyNode, 0, len(g.nodes)),
		Edges: make([]domain.TopologyEdge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		out.Nodes = append(out.Nodes, *n)
	}
	for _, e := range g.edges {
		out.Edges = append(out.Edges, e)
	}
	sort.Slice(out.Nodes, func(i, j int) bool { return out.Nodes[i].ID < out.Nodes[j].ID })
	sort.Slice(out.Edges, func(i, j int) bool { return out.Edges[i].ID < out.Edges[j].ID })
	return out
}

// nodeID hashes (kind, lowercased qualified name) so identical lineage
// state always produces identical identifiers.
func nodeID(kind domain.NodeKind, qualified string) string {
	sum := sha256.Sum256([]byte(string(kind) + "|" + strings.ToLower(qualified)))
	return hex.EncodeToString(sum[:8])
}

func edgeID(source, target string, kind domain.WriterKind, column string) string {
	sum := sha256.Sum256([]byte(source + "|" + target + "|" + string(kind) + "|" + strings.ToLower(column)))
	return hex.EncodeToString(sum[:8])
}
