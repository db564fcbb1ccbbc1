package tsqlscan

import "strings"

// WriteKind classifies a detected write statement.
type WriteKind string

// Write kinds, matching the engine's writer taxonomy.
const (
	KindUpdate       WriteKind = "UPDATE"
	KindInsertSelect WriteKind = "INSERT_SELECT"
	KindInsertValues WriteKind = "INSERT_VALUES"
	KindMergeUpdate  WriteKind = "MERGE_UPDATE"
	KindMergeInsert  WriteKind = "MERGE_INSERT"
	KindDynamic      WriteKind = "DYNAMIC"
)

// DynamicReviewNote is attached to every DYNAMIC write.
const DynamicReviewNote = "dynamic SQL detected; embedded statement not parsed — manual review required"

// Confidence scores per write kind. Monotone with detection certainty:
// an explicit SET assignment is stronger evidence than a positional
// column match, and the dynamic heuristic is weakest.
const (
	ConfidenceAssignment = 0.9  // UPDATE, MERGE_UPDATE
	ConfidencePositional = 0.85 // INSERT_SELECT, INSERT_VALUES, MERGE_INSERT
	ConfidenceDynamic    = 0.3
)

// Target names the column the scanner looks for. Schema and Table are
// optional filters; Aliases lists additional accepted table names
// (synonyms) matched like Table.
type Target struct {
	Schema  string
	Table   string
	Column  string
	Aliases []string
}

// Write is one detected write of the target column inside a routine
// definition.
type Write struct {
	Kind       WriteKind
	Table      string // target table as written, brackets stripped
	Expression string // assignment right-hand side; "" when HasExpr is false
	HasExpr    bool   // false only for DYNAMIC writes
	Excerpt    string // short multi-line context around the match
	Source     string // full statement text; "" for DYNAMIC writes
	Confidence float64
	Note       string
}

// DetectWrites scans routine source text for statements that write the
// target column. Purely lexical; never executes SQL.
func DetectWrites(defn string, tgt Target) []Write {
	if defn == "" || tgt.Column == "" {
		return nil
	}
	s := &scanner{src: defn, toks: Tokens(defn), tgt: tgt}
	s.run()
	if len(s.writes) == 0 {
		if w, ok := s.dynamicHeuristic(); ok {
			s.writes = append(s.writes, w)
		}
	}
	return s.writes
}

// scanner walks the token stream looking for write statements.
type scanner struct {
	src    string
	toks   []Token
	pos    int
	tgt    Target
	writes []Write

	// mergeTarget is the current MERGE statement's target table, set
	// while scanning between MERGE and the statement terminator.
	mergeTarget string

	// stmtStart is the byte offset of the current write statement. For
	// MERGE sub-clauses it stays on the MERGE keyword so the USING
	// source survives into Write.Source.
	stmtStart int
}

func (s *scanner) cur() Token  { return s.toks[s.pos] }
func (s *scanner) peek() Token { return s.peekN(1) }

func (s *scanner) peekN(n int) Token {
	if s.pos+n >= len(s.toks) {
		return s.toks[len(s.toks)-1] // EOF
	}
	return s.toks[s.pos+n]
}

func (s *scanner) advance() {
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
}

// prevType returns the type of the token before the current one.
func (s *scanner) prevType() TokenType {
	if s.pos == 0 {
		return TOKEN_EOF
	}
	return s.toks[s.pos-1].Type
}

func (s *scanner) run() {
	for s.cur().Type != TOKEN_EOF {
		switch s.cur().Type {
		case TOKEN_MERGE:
			s.stmtStart = s.cur().Pos
			s.advance()
			if s.cur().Type == TOKEN_INTO {
				s.advance()
			}
			s.mergeTarget = s.readObjectName()
		case TOKEN_SEMICOLON:
			s.mergeTarget = ""
			s.advance()
		case TOKEN_UPDATE:
			if s.prevType() == TOKEN_THEN && s.mergeTarget != "" {
				s.advance()
				s.scanUpdateSet(s.mergeTarget, KindMergeUpdate)
			} else {
				s.stmtStart = s.cur().Pos
				s.advance()
				table := s.readObjectName()
				s.scanUpdateSet(table, KindUpdate)
			}
		case TOKEN_INSERT:
			fromMerge := s.prevType() == TOKEN_THEN && s.mergeTarget != ""
			if !fromMerge {
				s.stmtStart = s.cur().Pos
			}
			s.advance()
			s.scanInsert(fromMerge)
		default:
			s.advance()
		}
	}
}

// scanUpdateSet handles "... SET col = expr [, col = expr ...]" for the
// given target table. The caller has consumed UPDATE and the table name.
func (s *scanner) scanUpdateSet(table string, kind WriteKind) {
	if table == "" || !s.matchesTable(table) {
		return
	}
	// Skip an optional alias ("UPDATE t AS x" is not T-SQL, but hints
	// like WITH (ROWLOCK) are) until SET, bounded to the same statement.
	for s.cur().Type != TOKEN_SET {
		switch s.cur().Type {
		case TOKEN_EOF, TOKEN_SEMICOLON, TOKEN_UPDATE, TOKEN_INSERT, TOKEN_MERGE, TOKEN_SELECT:
			return
		}
		s.advance()
	}
	s.advance() // consume SET

	for {
		name := s.readColumnName()
		if name == "" || s.cur().Type != TOKEN_EQ {
			return
		}
		s.advance() // consume =
		start, end := s.readExprRange()
		if strings.EqualFold(name, s.tgt.Column) && end > start {
			expr := strings.TrimSpace(s.src[start:end])
			s.emit(Write{
				Kind:       kind,
				Table:      table,
				Expression: expr,
				HasExpr:    true,
				Excerpt:    excerpt(s.src, start, end),
				Confidence: ConfidenceAssignment,
			})
		}
		if s.cur().Type != TOKEN_COMMA {
			return
		}
		s.advance() // consume , and continue with the next assignment
	}
}

// scanInsert handles both INSERT INTO t (cols) SELECT ... and
// INSERT INTO t (cols) VALUES (...). For MERGE's WHEN NOT MATCHED THEN
// INSERT the table name is absent and the MERGE target is used.
func (s *scanner) scanInsert(fromMerge bool) {
	if s.cur().Type == TOKEN_INTO {
		s.advance()
	}
	table := s.readObjectName()
	kind := KindInsertValues
	if fromMerge {
		if table == "" {
			table = s.mergeTarget
		}
		kind = KindMergeInsert
	}
	if table == "" || !s.matchesTable(table) {
		return
	}
	if s.cur().Type != TOKEN_LPAREN {
		return // no explicit column list; positional match impossible
	}
	s.advance()
	cols := s.readColumnList()
	idx := -1
	for i, c := range cols {
		if strings.EqualFold(c, s.tgt.Column) {
			idx = i
			break
		}
	}
	// Skip OUTPUT clauses and hints between the column list and the
	// VALUES/SELECT source, bounded to the same statement.
	for {
		switch s.cur().Type {
		case TOKEN_VALUES:
			s.advance()
			if s.cur().Type != TOKEN_LPAREN {
				return
			}
			s.advance()
			ranges := s.readParenExprList()
			s.emitPositional(kind, table, idx, ranges)
			return
		case TOKEN_SELECT:
			s.advance()
			ranges := s.readSelectExprList()
			if kind == KindInsertValues {
				kind = KindInsertSelect
			}
			s.emitPositional(kind, table, idx, ranges)
			return
		case TOKEN_EOF, TOKEN_SEMICOLON, TOKEN_UPDATE, TOKEN_INSERT, TOKEN_MERGE:
			return
		default:
			s.advance()
		}
	}
}

// emitPositional emits a write when the target column's position maps
// to a source expression.
func (s *scanner) emitPositional(kind WriteKind, table string, idx int, ranges [][2]int) {
	if idx < 0 || idx >= len(ranges) {
		return
	}
	start, end := ranges[idx][0], ranges[idx][1]
	if end <= start {
		return
	}
	s.emit(Write{
		Kind:       kind,
		Table:      table,
		Expression: strings.TrimSpace(s.src[start:end]),
		HasExpr:    true,
		Excerpt:    excerpt(s.src, start, end),
		Confidence: ConfidencePositional,
	})
}

func (s *scanner) emit(w Write) {
	// Dedupe identical (kind, expression) pairs from repeated statements.
	for _, prev := range s.writes {
		if prev.Kind == w.Kind && prev.Expression == w.Expression && prev.Table == w.Table {
			return
		}
	}
	w.Source = strings.TrimSpace(s.src[s.stmtStart:s.statementEnd()])
	s.writes = append(s.writes, w)
}

// statementEnd looks ahead from the current token to the end of the
// statement being scanned, without consuming anything. The cursor is
// mid-statement when a write is emitted, so a later top-level DML
// keyword or terminator marks the boundary.
func (s *scanner) statementEnd() int {
	end := s.cur().Pos
	depth := 0
	for i := s.pos; i < len(s.toks); i++ {
		tok := s.toks[i]
		switch tok.Type {
		case TOKEN_EOF:
			return end
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			if depth > 0 {
				depth--
			}
		case TOKEN_SEMICOLON, TOKEN_UPDATE, TOKEN_INSERT, TOKEN_MERGE, TOKEN_DELETE:
			if depth == 0 {
				return end
			}
		}
		end = tok.End
	}
	return end
}

// readObjectName reads a possibly qualified object name
// (ident[.ident[.ident]]) and returns it dot-joined with brackets
// stripped, or "" if the current token is not an identifier.
func (s *scanner) readObjectName() string {
	if s.cur().Type != TOKEN_IDENT {
		return ""
	}
	parts := []string{s.cur().Literal}
	s.advance()
	for s.cur().Type == TOKEN_DOT && s.peek().Type == TOKEN_IDENT {
		s.advance()
		parts = append(parts, s.cur().Literal)
		s.advance()
	}
	return strings.Join(parts, ".")
}

// readColumnName reads a possibly alias-qualified column name and
// returns only the final name part.
func (s *scanner) readColumnName() string {
	name := s.readObjectName()
	if name == "" {
		return ""
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// readColumnList reads "col [, col ...] )" after the opening paren was
// consumed. Returns the bare column names.
func (s *scanner) readColumnList() []string {
	var cols []string
	depth := 0
	expect := true
	for {
		switch s.cur().Type {
		case TOKEN_EOF:
			return cols
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			if depth == 0 {
				s.advance()
				return cols
			}
			depth--
		case TOKEN_COMMA:
			if depth == 0 {
				expect = true
			}
		case TOKEN_IDENT:
			if depth == 0 && expect {
				cols = append(cols, s.readColumnName())
				expect = false
				continue // readColumnName already advanced
			}
		}
		s.advance()
	}
}

// readExprRange captures the byte range of one assignment expression:
// everything up to the next top-level comma or clause boundary. CASE
// expressions are tracked so their WHEN/THEN arms stay inside the
// range; only a WHEN outside any CASE ends it (a MERGE clause).
func (s *scanner) readExprRange() (int, int) {
	start := s.cur().Pos
	end := start
	depth := 0
	caseDepth := 0
	for {
		switch s.cur().Type {
		case TOKEN_EOF:
			return start, end
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			if depth == 0 {
				return start, end
			}
			depth--
		case TOKEN_COMMA:
			if depth == 0 && caseDepth == 0 {
				return start, end
			}
		case TOKEN_WHERE, TOKEN_FROM, TOKEN_OUTPUT, TOKEN_OPTION, TOKEN_WHEN, TOKEN_SEMICOLON:
			if depth == 0 && caseDepth == 0 {
				return start, end
			}
		case TOKEN_IDENT:
			switch {
			case strings.EqualFold(s.cur().Literal, "case"):
				caseDepth++
			case strings.EqualFold(s.cur().Literal, "end") && caseDepth > 0:
				caseDepth--
			}
		}
		end = s.cur().End
		s.advance()
	}
}

// readParenExprList captures expression ranges inside ( ... ) split at
// top-level commas. The opening paren was already consumed.
func (s *scanner) readParenExprList() [][2]int {
	return s.readExprList(true)
}

// readSelectExprList captures the SELECT list expression ranges, ending
// at a top-level FROM, WHERE, statement terminator, or EOF.
func (s *scanner) readSelectExprList() [][2]int {
	return s.readExprList(false)
}

func (s *scanner) readExprList(parenBounded bool) [][2]int {
	var ranges [][2]int
	depth := 0
	start, end := -1, -1
	flush := func() {
		if start >= 0 {
			ranges = append(ranges, [2]int{start, end})
		}
		start, end = -1, -1
	}
	for {
		switch s.cur().Type {
		case TOKEN_EOF:
			flush()
			return ranges
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			if depth == 0 {
				flush()
				if parenBounded {
					s.advance()
				}
				return ranges
			}
			depth--
		case TOKEN_COMMA:
			if depth == 0 {
				flush()
				s.advance()
				continue
			}
		case TOKEN_FROM, TOKEN_WHERE, TOKEN_SEMICOLON:
			if depth == 0 && !parenBounded {
				flush()
				return ranges
			}
		}
		if start < 0 {
			start = s.cur().Pos
		}
		end = s.cur().End
		s.advance()
	}
}

// matchesTable reports whether a written table name refers to the
// target table (or one of its synonyms). Comparison is by final name
// part, plus schema when both sides carry one.
func (s *scanner) matchesTable(written string) bool {
	if s.tgt.Table == "" {
		return true
	}
	names := append([]string{s.tgt.Table}, s.tgt.Aliases...)
	wSchema, wName := splitQualified(written)
	for _, n := range names {
		_, nName := splitQualified(n)
		if !strings.EqualFold(wName, nName) {
			continue
		}
		if wSchema != "" && s.tgt.Schema != "" && !strings.EqualFold(wSchema, s.tgt.Schema) {
			continue
		}
		return true
	}
	return false
}

// splitQualified splits "a.b.c" into schema ("b") and name ("c").
func splitQualified(name string) (schema, bare string) {
	parts := strings.Split(name, ".")
	bare = parts[len(parts)-1]
	if len(parts) >= 2 {
		schema = parts[len(parts)-2]
	}
	return schema, bare
}

// dynamicHeuristic fires when the structural pass found nothing but the
// text invokes dynamic SQL and the target names appear inside string
// literals. The embedded statement is never parsed.
func (s *scanner) dynamicHeuristic() (Write, bool) {
	execPos := -1
	var literals []string
	for _, tok := range s.toks {
		switch tok.Type {
		case TOKEN_EXEC:
			if execPos < 0 {
				execPos = tok.Pos
			}
		case TOKEN_IDENT:
			if execPos < 0 && strings.EqualFold(tok.Literal, "sp_executesql") {
				execPos = tok.Pos
			}
		case TOKEN_STRING:
			literals = append(literals, tok.Literal)
		}
	}
	if execPos < 0 || len(literals) == 0 {
		return Write{}, false
	}
	embedded := strings.ToLower(strings.Join(literals, "\n"))
	if !strings.Contains(embedded, strings.ToLower(s.tgt.Column)) {
		return Write{}, false
	}
	if s.tgt.Table != "" {
		_, bare := splitQualified(s.tgt.Table)
		if !strings.Contains(embedded, strings.ToLower(bare)) {
			return Write{}, false
		}
	}
	if !strings.Contains(embedded, "update") && !strings.Contains(embedded, "insert") &&
		!strings.Contains(embedded, "merge") {
		return Write{}, false
	}
	return Write{
		Kind:       KindDynamic,
		Table:      s.tgt.Table,
		Excerpt:    excerpt(s.src, execPos, execPos),
		Confidence: ConfidenceDynamic,
		Note:       DynamicReviewNote,
	}, true
}
