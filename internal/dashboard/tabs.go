package dashboard

// Tab names match the data-tab attributes and the tab-<name> section ids.
type Tab string

const (
	TabOverview  Tab = "overview"
	TabUpload    Tab = "upload"
	TabPrograms  Tab = "programs"
	TabAnalytics Tab = "analytics"
)

// TabLink is one entry of the tab bar.
type TabLink struct {
	Tab    Tab
	Label  string
	Active bool
}

var tabLabels = []struct {
	tab   Tab
	label string
}{
	{TabOverview, "Overview"},
	{TabUpload, "Upload"},
	{TabPrograms, "Programs"},
	{TabAnalytics, "Analytics"},
}

// SelectTab resolves the ?tab= parameter. Unknown values fall back to the
// overview, and so does upload when the viewer is not on their own
// dashboard.
func SelectTab(param string, isSelf bool) Tab {
	switch t := Tab(param); t {
	case TabOverview, TabPrograms, TabAnalytics:
		return t
	case TabUpload:
		if isSelf {
			return t
		}
	}
	return TabOverview
}

// Tabs returns the tab bar. The upload tab is left out entirely unless the
// viewer is on their own dashboard.
func Tabs(active Tab, isSelf bool) []TabLink {
	links := make([]TabLink, 0, len(tabLabels))
	for _, tl := range tabLabels {
		if tl.tab == TabUpload && !isSelf {
			continue
		}
		links = append(links, TabLink{Tab: tl.tab, Label: tl.label, Active: tl.tab == active})
	}
	return links
}
