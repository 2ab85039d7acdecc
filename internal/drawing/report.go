package drawing

import "strings"

// Finding is the clinical text and code of one reporting doodle.
type Finding struct {
	ClassName   string `json:"className"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
}

// Findings returns the findings of every reporting doodle with a description, back to
// front.
func (d *Drawing) Findings() []Finding {
	var out []Finding
	for _, dd := range d.doodles {
		if !dd.Flags().WillReport {
			continue
		}
		desc := dd.Description()
		if desc == "" {
			continue
		}
		out = append(out, Finding{ClassName: dd.ClassName(), Description: desc, Code: dd.Code()})
	}
	return out
}

// Report joins the findings into one sentence. Classes with several instances and a group
// description are reported once, as the group description followed by each instance.
func (d *Drawing) Report() string {
	var (
		order  []string
		byName = make(map[string][]Finding)
		group  = make(map[string]string)
	)
	for _, f := range d.Findings() {
		if _, seen := byName[f.ClassName]; !seen {
			order = append(order, f.ClassName)
		}
		byName[f.ClassName] = append(byName[f.ClassName], f)
	}
	for _, dd := range d.doodles {
		group[dd.ClassName()] = dd.GroupDescription()
	}

	var parts []string
	for _, name := range order {
		findings := byName[name]
		if len(findings) > 1 && group[name] != "" {
			descs := make([]string, len(findings))
			for i, f := range findings {
				descs[i] = f.Description
			}
			parts = append(parts, group[name]+strings.Join(descs, ", "))
			continue
		}
		for _, f := range findings {
			parts = append(parts, f.Description)
		}
	}
	return strings.Join(parts, ", ")
}
