package selector

import (
	"sort"
	"strings"

	"citizen-portal-be/internal/entity"
)

const (
	// MaxRankedDepartments is how many departments a ranked selection keeps.
	MaxRankedDepartments = 5
	// MaxSummaryServices is how many services each department keeps in the unranked summary.
	MaxSummaryServices = 3

	nameWeight    = 10
	keywordWeight = 3
	serviceWeight = 5
)

// SelectionKind tells the caller which branch of the selector produced the result.
type SelectionKind int

const (
	// SelectionRanked holds the top scoring departments with full services and keywords.
	SelectionRanked SelectionKind = iota
	// SelectionUnranked holds every department in summarized form because nothing matched.
	SelectionUnranked
)

func (k SelectionKind) String() string {
	switch k {
	case SelectionRanked:
		return "ranked"
	case SelectionUnranked:
		return "unranked"
	default:
		return "unknown"
	}
}

// Selection is the result of narrowing a catalog down for one query.
type Selection struct {
	Kind        SelectionKind
	Departments []entity.DepartmentRecord
}

// Empty returns a ranked selection with no departments, used when the caller sent no catalog.
func Empty() Selection {
	return Selection{Kind: SelectionRanked, Departments: []entity.DepartmentRecord{}}
}

// Select scores every catalog entry against query and keeps the most relevant ones.
// When no entry scores above zero the whole catalog is returned, summarized.
func Select(query string, catalog []entity.DepartmentRecord) Selection {
	if len(catalog) == 0 {
		return Selection{Kind: SelectionUnranked, Departments: []entity.DepartmentRecord{}}
	}

	normalized := strings.ToLower(strings.TrimSpace(query))

	scored := make([]entity.ScoredDepartment, len(catalog))
	for i, dept := range catalog {
		scored[i] = entity.ScoredDepartment{
			DepartmentRecord: dept,
			Score:            ScoreDepartment(normalized, dept),
		}
	}

	// Ties keep catalog order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	top := scored
	if len(top) > MaxRankedDepartments {
		top = top[:MaxRankedDepartments]
	}

	if top[0].Score == 0 {
		return Selection{Kind: SelectionUnranked, Departments: summarize(catalog)}
	}

	// Entries that matched nothing stay out of a ranked selection.
	ranked := make([]entity.DepartmentRecord, 0, len(top))
	for _, s := range top {
		if s.Score == 0 {
			break
		}
		ranked = append(ranked, copyRecord(s.DepartmentRecord))
	}
	return Selection{Kind: SelectionRanked, Departments: ranked}
}

// ScoreDepartment computes the relevance of dept for an already lower-cased query.
func ScoreDepartment(query string, dept entity.DepartmentRecord) int {
	if query == "" {
		return 0
	}

	score := 0
	if name := strings.ToLower(dept.Name); name != "" && strings.Contains(query, name) {
		score += nameWeight
	}
	for _, kw := range dept.Keywords {
		if kw = strings.ToLower(kw); kw != "" && strings.Contains(query, kw) {
			score += keywordWeight
		}
	}
	for _, svc := range dept.Services {
		if svc = strings.ToLower(svc); svc != "" && strings.Contains(query, svc) {
			score += serviceWeight
		}
	}
	return score
}

func summarize(catalog []entity.DepartmentRecord) []entity.DepartmentRecord {
	out := make([]entity.DepartmentRecord, len(catalog))
	for i, dept := range catalog {
		services := dept.Services
		if len(services) > MaxSummaryServices {
			services = services[:MaxSummaryServices]
		}
		out[i] = entity.DepartmentRecord{
			Name:        dept.Name,
			Description: dept.Description,
			Link:        dept.Link,
			Services:    cloneStrings(services),
			Hours:       dept.Hours,
			Contact:     dept.Contact,
		}
	}
	return out
}

func copyRecord(dept entity.DepartmentRecord) entity.DepartmentRecord {
	dept.Services = cloneStrings(dept.Services)
	dept.Keywords = cloneStrings(dept.Keywords)
	return dept
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
