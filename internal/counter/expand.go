package counter

import "github.com/filerstat/filerstat/internal/filer"

// ExpandProcessor expands per-processor counter metadata into one synthetic
// description per (processor, counter) pair. Array counters (domain_busy)
// additionally fan out per sub-value label, so a filer with N processors and
// M scheduler domains yields N×M leaf descriptions named
// "processorID_domain_busy_label". Base counter references are rewritten
// with the same processor prefix so Average/Percent derivation resolves
// within the expanded namespace.
//
// Descriptors that already carry a processor prefix are passed through
// unchanged, making the expansion idempotent.
func ExpandProcessor(metas []filer.CounterMeta, processors []string) map[string]Description {
	descs := make(map[string]Description)

	for _, m := range metas {
		if expandedName(m.Name, processors) {
			descs[m.Name] = Description{
				Name: m.Name,
				Kind: ParseKind(m.Properties),
				Unit: m.Unit,
				Base: m.BaseCounter,
			}
			continue
		}

		for _, proc := range processors {
			base := m.BaseCounter
			if base != "" {
				base = proc + "_" + base
			}

			if m.IsArray() {
				for _, label := range m.Labels {
					name := proc + "_" + m.Name + "_" + label
					descs[name] = Description{
						Name: name,
						Kind: ParseKind(m.Properties),
						Unit: m.Unit,
						Base: base,
					}
				}
				continue
			}

			name := proc + "_" + m.Name
			descs[name] = Description{
				Name: name,
				Kind: ParseKind(m.Properties),
				Unit: m.Unit,
				Base: base,
			}
		}
	}

	return descs
}

func expandedName(name string, processors []string) bool {
	for _, proc := range processors {
		if len(name) > len(proc)+1 && name[:len(proc)] == proc && name[len(proc)] == '_' {
			return true
		}
	}
	return false
}
