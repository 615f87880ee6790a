package store

import "strings"

// sanitizeFTSQuery turns untrusted user input into a single literal,
// prefix-matched FTS token, per spec.md §9: "embedded quotes and the query
// itself are always a single literal token with a trailing wildcard".
//
// SQLite fts5 syntax: a double-quoted string is a literal phrase; doubling
// an embedded quote escapes it. Appending "*" after the closing quote makes
// it a prefix match.
func sanitizeFTSQuery(q string) string {
	escaped := strings.ReplaceAll(q, `"`, `""`)
	return `"` + escaped + `"*`
}

// sanitizeTSQuery builds an equivalent prefix-match query for PostgreSQL's
// to_tsquery, since tsquery has no phrase-literal syntax: each whitespace-
// separated term is escaped and suffixed with ":*" (prefix match), and the
// terms are ANDed together so multi-word queries still narrow the match.
func sanitizeTSQuery(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, "'", "''")
		f = strings.ReplaceAll(f, ":", "")
		if f == "" {
			continue
		}
		terms = append(terms, f+":*")
	}
	return strings.Join(terms, " & ")
}
