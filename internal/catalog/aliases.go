package catalog

import "sort"

type aliasKey struct {
	canonical string
	name      string
	source    string
}

// BuildFieldAliases rebuilds the alias table from scratch.
//
// Fields with a canonical name are grouped by (canonical name, header text,
// source); each group counts the distinct files it appears in. Results are
// ordered by canonical name, then descending file count, then source and
// header text.
func BuildFieldAliases(files []*FileProfile) []FieldAlias {
	seen := make(map[aliasKey]map[int]struct{})
	for i, fp := range files {
		if fp == nil {
			continue
		}
		for _, f := range fp.Fields {
			if f.CanonicalName == "" {
				continue
			}
			k := aliasKey{canonical: f.CanonicalName, name: f.Name, source: fp.File.Source}
			set, ok := seen[k]
			if !ok {
				set = make(map[int]struct{})
				seen[k] = set
			}
			set[i] = struct{}{}
		}
	}

	out := make([]FieldAlias, 0, len(seen))
	for k, set := range seen {
		out = append(out, FieldAlias{
			CanonicalName: k.canonical,
			Name:          k.name,
			Source:        k.source,
			FileCount:     len(set),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CanonicalName != b.CanonicalName {
			return a.CanonicalName < b.CanonicalName
		}
		if a.FileCount != b.FileCount {
			return a.FileCount > b.FileCount
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Name < b.Name
	})
	return out
}
