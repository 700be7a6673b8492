package extract

import (
	"slices"
	"strings"
)

// Deduplicate collapses records sharing a time|fleet key, keeping the
// highest confidence (first seen on ties), and sorts by time.
func Deduplicate(records []Record) []Record {
	idx := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if i, ok := idx[k]; ok {
			if r.Confidence > out[i].Confidence {
				out[i] = r
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		return strings.Compare(a.Time, b.Time)
	})
	return out
}

// Merge combines independent extraction results (one per file) and runs
// them once through deduplication.
func Merge(results ...Result) Result {
	var (
		recs  []Record
		used  []string
		warns []string
	)
	for _, r := range results {
		recs = append(recs, r.Records...)
		warns = append(warns, r.Warnings...)
		if r.StrategyUsed == "" || r.StrategyUsed == StrategyNone {
			continue
		}
		used = append(used, strings.Split(r.StrategyUsed, "+")...)
	}
	return Result{
		Records:      Deduplicate(recs),
		StrategyUsed: joinStrategies(used),
		Warnings:     uniq(warns),
	}
}

func uniq(ss []string) []string {
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func joinStrategies(names []string) string {
	names = uniq(names)
	if len(names) == 0 {
		return StrategyNone
	}
	return strings.Join(names, "+")
}
