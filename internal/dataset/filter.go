package dataset

import (
	"time"

	"socdash/pkg/models"
)

// Filter selects rows. An empty selection leaves that field unrestricted;
// From and To are inclusive calendar dates.
type Filter struct {
	From         time.Time
	To           time.Time
	Events       []string
	Countries    []string
	Levels       []models.RiskLevel
	Packages     []string
	AppVersions  []string
	BuildNumbers []string
	Environments []string
	SessionIDs   []string
}

type matcher struct {
	from, to string
	fields   map[string]map[string]struct{}
	levels   map[models.RiskLevel]struct{}
}

func (f Filter) compile() matcher {
	m := matcher{fields: make(map[string]map[string]struct{})}
	if !f.From.IsZero() {
		m.from = f.From.Format("2006-01-02")
	}
	if !f.To.IsZero() {
		m.to = f.To.Format("2006-01-02")
	}
	add := func(field string, values []string) {
		if len(values) == 0 {
			return
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		m.fields[field] = set
	}
	add(models.FieldEvent, f.Events)
	add(models.FieldCountry, f.Countries)
	add(models.FieldPackage, f.Packages)
	add(models.FieldAppVersion, f.AppVersions)
	add(models.FieldBuildNumber, f.BuildNumbers)
	add(models.FieldEnvironment, f.Environments)
	add(models.FieldSessionID, f.SessionIDs)
	if len(f.Levels) > 0 {
		m.levels = make(map[models.RiskLevel]struct{}, len(f.Levels))
		for _, l := range f.Levels {
			m.levels[l] = struct{}{}
		}
	}
	return m
}

func (m matcher) match(ev *models.ScoredEvent) bool {
	if m.from != "" || m.to != "" {
		date := ev.Date()
		if m.from != "" && date < m.from {
			return false
		}
		if m.to != "" && date > m.to {
			return false
		}
	}
	for field, set := range m.fields {
		if _, ok := set[ev.Field(field)]; !ok {
			return false
		}
	}
	if m.levels != nil {
		if _, ok := m.levels[ev.RiskLevel]; !ok {
			return false
		}
	}
	return true
}

// Filter returns the rows matching f.
func (d *Dataset) Filter(f Filter) *Dataset {
	if d == nil {
		return New(nil, nil)
	}
	m := f.compile()
	return d.derive(m.match)
}
