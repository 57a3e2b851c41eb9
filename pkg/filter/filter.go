// Package filter implements the pure include/exclude decision over
// (account, action, actor) triples described in spec §4.3. It is grounded
// on the original elasticsearch_plugin's filter_entry/filter_include logic
// (original_source/plugins/elasticsearch_plugin/elasticsearch_plugin.cpp),
// translated from an ordered std::set<filter_entry> into Go maps keyed by a
// comparable struct.
package filter

import (
	"strings"

	"github.com/eosio-elastic/indexer/pkg/hostevents"
)

// Entry is one (account, action, actor) filter row; hostevents.Wildcard
// marks a position as "any". Include consults the On set only as
// (account, action, Wildcard) and (account, action, actor) rows, and the Out
// set as (account, Wildcard, Wildcard), (account, action, Wildcard) and
// (account, action, actor) rows. Any other row shape, such as a wildcard
// action with a concrete actor, never matches.
type Entry struct {
	Account hostevents.Name
	Action  hostevents.Name
	Actor   hostevents.Name
}

// Filter holds the include/exclude sets and the "match everything" star
// flag, mirroring elasticsearch_plugin_impl's filter_on_star/filter_on/filter_out.
type Filter struct {
	OnStar bool
	On     map[Entry]struct{}
	Out    map[Entry]struct{}
}

// New builds a Filter from explicit on/out entry lists.
func New(onStar bool, on, out []Entry) *Filter {
	f := &Filter{
		OnStar: onStar,
		On:     make(map[Entry]struct{}, len(on)),
		Out:    make(map[Entry]struct{}, len(out)),
	}
	for _, e := range on {
		f.On[e] = struct{}{}
	}
	for _, e := range out {
		f.Out[e] = struct{}{}
	}
	return f
}

// Include reports whether act should be indexed. It is independent of the
// order of authorization, matching the universal invariant in spec §8: each
// authorizer is checked individually, none is treated specially by position.
func (f *Filter) Include(account, action hostevents.Name, authorization []hostevents.Actor) bool {
	include := f.OnStar
	if !include {
		if _, ok := f.On[Entry{account, action, hostevents.Wildcard}]; ok {
			include = true
		}
	}
	if !include {
		for _, a := range authorization {
			if _, ok := f.On[Entry{account, action, a.Actor}]; ok {
				include = true
				break
			}
		}
	}
	if !include {
		return false
	}

	if _, ok := f.Out[Entry{account, hostevents.Wildcard, hostevents.Wildcard}]; ok {
		return false
	}
	if _, ok := f.Out[Entry{account, action, hostevents.Wildcard}]; ok {
		return false
	}
	for _, a := range authorization {
		if _, ok := f.Out[Entry{account, action, a.Actor}]; ok {
			return false
		}
	}
	return true
}

// ParseEntries parses a comma-separated list of "account:action:actor"
// triples (an empty segment in the action or actor position is the
// wildcard sentinel) into Entry values, the configuration format for the
// filter_on/filter_out sets (spec §6).
func ParseEntries(csv string) []Entry {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	var entries []Entry
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		e := Entry{Account: hostevents.Name(parts[0])}
		if len(parts) > 1 {
			e.Action = hostevents.Name(parts[1])
		}
		if len(parts) > 2 {
			e.Actor = hostevents.Name(parts[2])
		}
		entries = append(entries, e)
	}
	return entries
}
