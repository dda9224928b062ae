package engine

import (
	"github.com/transmute/transmute/pkg/plugin"
	"github.com/transmute/transmute/pkg/types"
)

// Phase is one scheduled unit of execution. Every plugin, including
// whole-list ones, is wrapped in a Phase so the orchestrator drives a single
// polymorphic run operation regardless of phase kind.
type Phase struct {
	Kind    types.PhaseKind
	Plugins []*plugin.Registered
}

// PluginNames returns the display names of the phase's plugins in order
func (p Phase) PluginNames() []string {
	names := make([]string, len(p.Plugins))
	for i, pl := range p.Plugins {
		names[i] = pl.Name()
	}
	return names
}

// CreateBuildPhases partitions an ordered plugin list into the initial phase
// and the ordered subsequent phases.
//
// The initial phase collects per-file plugins from the front of the list and
// stops at the first whole-list plugin; that plugin's index, not the one past
// it, is the boundary. From the boundary on, consecutive per-file plugins are
// grouped into parallel batch phases and each whole-list plugin becomes a
// standalone barrier phase. A plugin exposing both capabilities is always
// scheduled as a barrier, never split into two executions. Registration
// order is preserved throughout; nothing is reordered or deduplicated.
func CreateBuildPhases(plugins []*plugin.Registered) (Phase, []Phase) {
	initial := Phase{Kind: types.PhaseInitial}

	boundary := len(plugins)
	for i, p := range plugins {
		if p.Capabilities().Has(plugin.CapList) {
			boundary = i
			break
		}
		if p.Capabilities().Has(plugin.CapFile) {
			initial.Plugins = append(initial.Plugins, p)
		}
	}

	if boundary == len(plugins) {
		return initial, nil
	}

	var subsequent []Phase
	var batch []*plugin.Registered

	for _, p := range plugins[boundary:] {
		if p.Capabilities().Has(plugin.CapList) {
			if len(batch) > 0 {
				subsequent = append(subsequent, Phase{Kind: types.PhaseBatch, Plugins: batch})
				batch = nil
			}
			subsequent = append(subsequent, Phase{Kind: types.PhaseBarrier, Plugins: []*plugin.Registered{p}})
			continue
		}
		if p.Capabilities().Has(plugin.CapFile) {
			batch = append(batch, p)
		}
	}

	if len(batch) > 0 {
		subsequent = append(subsequent, Phase{Kind: types.PhaseBatch, Plugins: batch})
	}

	return initial, subsequent
}
