package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	pre := renderPredicate(q.Predicate)

	knnPart := fmt.Sprintf("[KNN %d @__vector $BLOB]", q.K)
	var queryStr string
	if pre != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", pre, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"SORTBY", "__vector_score",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// parseKNNResult decodes the RESP2 FT.SEARCH reply. Cosine distance is
// mapped onto a [0,1] similarity score.
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		}

		if scoreStr, ok := entry.Fields["__vector_score"]; ok {
			if dist, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = max(0, 1.0-dist)
			}
			delete(entry.Fields, "__vector_score")
		}

		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Predicate rendering ---

// renderPredicate translates a compiled predicate into an FT.SEARCH
// pre-filter query string. Must conditions join with spaces (conjunction);
// must-not conditions carry the "-" prefix.
func renderPredicate(p filter.Predicate) string {
	if p.IsEmpty() {
		return ""
	}

	var parts []string
	for _, cond := range p.Must() {
		parts = append(parts, renderCondition(cond))
	}
	for _, cond := range p.MustNot() {
		parts = append(parts, "-"+renderCondition(cond))
	}
	return strings.Join(parts, " ")
}

func renderCondition(cond filter.Condition) string {
	switch {
	case cond.IsMatch():
		return renderTag(cond.Field(), cond.Match())
	case cond.IsSet():
		escaped := make([]string, 0, len(cond.Set()))
		for _, v := range cond.Set() {
			escaped = append(escaped, tagEscaper.Replace(v))
		}
		return fmt.Sprintf("@%s:{%s}", cond.Field(), strings.Join(escaped, "|"))
	case cond.IsNumericSet():
		alts := make([]string, 0, len(cond.NumericSet()))
		for _, v := range cond.NumericSet() {
			alts = append(alts, fmt.Sprintf("@%s:[%g %g]", cond.Field(), v, v))
		}
		if len(alts) == 1 {
			return alts[0]
		}
		return "(" + strings.Join(alts, " | ") + ")"
	case cond.IsRange():
		return renderRange(cond.Field(), *cond.Range())
	default:
		return ""
	}
}

func renderTag(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

func renderRange(field string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", field, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
