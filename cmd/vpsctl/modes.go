package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

const (
	modeFull        = "full"
	modeSystem      = "system"
	modeApplication = "application"
	modeSandbox     = "sandbox"
	modeVerify      = "verify"
)

var knownModes = []string{modeFull, modeSystem, modeApplication, modeSandbox, modeVerify}

// modeSet is the parsed --mode selection.
type modeSet struct {
	names []string
}

// parseModes accepts repeated values and comma lists. Nothing selects full.
func parseModes(raw []string) (modeSet, error) {
	var m modeSet
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if !slices.Contains(knownModes, name) {
				return modeSet{}, vpserrors.NewValidationError("mode",
					fmt.Sprintf("unknown mode %q (want one of %s)", name, strings.Join(knownModes, ", ")), nil)
			}
			if !m.has(name) {
				m.names = append(m.names, name)
			}
		}
	}
	if len(m.names) == 0 {
		m.names = []string{modeFull}
	}
	return m, nil
}

func (m modeSet) has(name string) bool {
	return slices.Contains(m.names, name)
}

// Names returns the selected modes in the order given.
func (m modeSet) Names() []string {
	return append([]string(nil), m.names...)
}

// Reconcile reports whether any mutating mode was selected.
func (m modeSet) Reconcile() bool {
	return m.has(modeFull) || m.has(modeSystem) || m.has(modeApplication) || m.has(modeSandbox)
}

// Groups returns the resource and check groups in scope.
func (m modeSet) Groups() []string {
	if m.has(modeFull) || (m.has(modeVerify) && len(m.names) == 1) {
		return slices.Clone(resource.Groups)
	}
	var groups []string
	for _, g := range resource.Groups {
		if m.has(g) {
			groups = append(groups, g)
		}
	}
	return groups
}
