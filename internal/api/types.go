package api

import (
	"time"

	"dota/internal/domain"
	"dota/internal/snapshot"
)

// RefreshResponse summarizes a completed snapshot refresh.
type RefreshResponse struct {
	Generation uint64 `json:"generation"`
	Tables     int    `json:"tables"`
	Routines   int    `json:"routines"`
	Triggers   int    `json:"triggers"`
	Synonyms   int    `json:"synonyms"`
	Jobs       int    `json:"jobs"`
	DepEdges   int    `json:"dependency_edges"`
}

// TableCandidateResponse is one table matching a column search.
type TableCandidateResponse struct {
	Schema      string `json:"schema"`
	Table       string `json:"table"`
	IsBaseTable bool   `json:"is_base_table"`
	RowCount    int64  `json:"row_count"`
	WriterCount int    `json:"writer_count,omitempty"`
	HasTrigger  bool   `json:"has_trigger,omitempty"`
}

// WriterResponse describes one detected writer.
type WriterResponse struct {
	Kind        string  `json:"kind"`
	RoutineName *string `json:"routine_name,omitempty"`
	Expression  *string `json:"expression,omitempty"`
	Excerpt     string  `json:"excerpt"`
	Confidence  float64 `json:"confidence"`
	IsDynamic   bool    `json:"is_dynamic"`
	Note        string  `json:"note,omitempty"`
}

// TopologyNodeResponse / TopologyEdgeResponse mirror the lineage graph.
type TopologyNodeResponse struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Cycle bool   `json:"cycle,omitempty"`
}

type TopologyEdgeResponse struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Column string `json:"column"`
}

type TopologyResponse struct {
	Nodes []TopologyNodeResponse `json:"nodes"`
	Edges []TopologyEdgeResponse `json:"edges"`
}

// PopulationResponse is the full answer to a population query.
type PopulationResponse struct {
	Schema       string                   `json:"schema"`
	Table        string                   `json:"table"`
	Column       string                   `json:"column"`
	Generation   uint64                   `json:"generation"`
	Writers      []WriterResponse         `json:"writers"`
	Topology     *TopologyResponse        `json:"topology"`
	Alternatives []TableCandidateResponse `json:"alternatives"`
	Ambiguous    bool                     `json:"ambiguous"`
	ScanCapped   bool                     `json:"scan_capped"`
	FallbackScan bool                     `json:"fallback_scan"`
	Notes        []string                 `json:"notes,omitempty"`
}

// DependencyEntryResponse is the raw index entry for one (table, column).
type DependencyEntryResponse struct {
	Schema       string           `json:"schema"`
	Table        string           `json:"table"`
	Column       string           `json:"column"`
	Generation   uint64           `json:"generation"`
	Writers      []WriterResponse `json:"writers"`
	ScanCapped   bool             `json:"scan_capped"`
	FallbackScan bool             `json:"fallback_scan"`
}

// JobResponse is job metadata from the snapshot.
type JobResponse struct {
	Name          string     `json:"name"`
	LastRunStatus string     `json:"last_run_status"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
}

func refreshToAPI(c snapshot.Counts) RefreshResponse {
	return RefreshResponse{
		Generation: c.Generation,
		Tables:     c.Tables,
		Routines:   c.Routines,
		Triggers:   c.Triggers,
		Synonyms:   c.Synonyms,
		Jobs:       c.Jobs,
		DepEdges:   c.DepEdges,
	}
}

func candidateToAPI(c domain.TableCandidate) TableCandidateResponse {
	return TableCandidateResponse{
		Schema:      c.Table.Schema,
		Table:       c.Table.Name,
		IsBaseTable: c.IsBaseTable,
		RowCount:    c.RowCount,
		WriterCount: c.WriterCount,
		HasTrigger:  c.HasTrigger,
	}
}

func candidatesToAPI(cs []domain.TableCandidate) []TableCandidateResponse {
	out := make([]TableCandidateResponse, len(cs))
	for i, c := range cs {
		out[i] = candidateToAPI(c)
	}
	return out
}

func writerToAPI(w domain.Writer) WriterResponse {
	resp := WriterResponse{
		Kind:       string(w.Kind),
		Expression: w.Expression,
		Excerpt:    w.Excerpt,
		Confidence: w.Confidence,
		IsDynamic:  w.IsDynamic(),
		Note:       w.Note,
	}
	if w.Routine != nil {
		name := w.Routine.Qualified()
		resp.RoutineName = &name
	}
	return resp
}

func writersToAPI(ws []domain.Writer) []WriterResponse {
	out := make([]WriterResponse, len(ws))
	for i, w := range ws {
		out[i] = writerToAPI(w)
	}
	return out
}

func topologyToAPI(t *domain.Topology) *TopologyResponse {
	if t == nil {
		return nil
	}
	resp := &TopologyResponse{
		Nodes: make([]TopologyNodeResponse, len(t.Nodes)),
		Edges: make([]TopologyEdgeResponse, len(t.Edges)),
	}
	for i, n := range t.Nodes {
		resp.Nodes[i] = TopologyNodeResponse{ID: n.ID, Kind: string(n.Kind), Label: n.Label, Cycle: n.Cycle}
	}
	for i, e := range t.Edges {
		resp.Edges[i] = TopologyEdgeResponse{ID: e.ID, Source: e.Source, Target: e.Target, Kind: string(e.Kind), Column: e.Column}
	}
	return resp
}

func populationToAPI(r *domain.PopulationResult) PopulationResponse {
	return PopulationResponse{
		Schema:       r.Table.Schema,
		Table:        r.Table.Name,
		Column:       r.Column,
		Generation:   r.Generation,
		Writers:      writersToAPI(r.Writers),
		Topology:     topologyToAPI(r.Topology),
		Alternatives: candidatesToAPI(r.Alternatives),
		Ambiguous:    r.Ambiguous,
		ScanCapped:   r.ScanCapped,
		FallbackScan: r.FallbackScan,
		Notes:        r.Notes,
	}
}

func entryToAPI(e *domain.DependencyEntry) DependencyEntryResponse {
	return DependencyEntryResponse{
		Schema:       e.Table.Schema,
		Table:        e.Table.Name,
		Column:       e.Column,
		Generation:   e.Generation,
		Writers:      writersToAPI(e.Writers),
		ScanCapped:   e.ScanCapped,
		FallbackScan: e.FallbackScan,
	}
}

func jobToAPI(j domain.Job) JobResponse {
	resp := JobResponse{Name: j.Name, LastRunStatus: j.LastRunStatus}
	if !j.LastRunAt.IsZero() {
		at := j.LastRunAt
		resp.LastRunAt = &at
	}
	return resp
}
