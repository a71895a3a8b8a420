// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package configtree

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/validation"
)

// Well-known keys of the tree.
const (
	KeyGlobalAttributes = "global_attributes"
	KeyDatatypes        = "datatypes"
	KeyDeployment       = "deployment"
	KeyInstruments      = "instruments"
)

// Deployment is the validated view of <platform>/deployment.
type Deployment struct {
	// Platform is the platform record handed to the encoder; Platform["id"]
	// prefixes every global id.
	Platform         map[string]any `json:"platform" validate:"required"`
	TrajectoryID     any            `json:"trajectory_id"`
	Directory        string         `json:"directory" validate:"required,relpath"`
	GlobalAttributes map[string]any `json:"global_attributes"`
}

// PlatformID returns platform.id as a string.
func (d Deployment) PlatformID() string {
	id, ok := d.Platform["id"]
	if !ok || id == nil {
		return ""
	}
	if s, ok := id.(string); ok {
		return s
	}
	return fmt.Sprint(id)
}

// Platform holds everything configured for one glider.
type Platform struct {
	Name        string
	Deployment  Deployment
	Instruments any
}

// Tree is an immutable configuration snapshot.
type Tree struct {
	raw         map[string]any
	platforms   map[string]Platform
	parseErrors []error
}

// New builds a Tree from an in-memory map. The map is copied.
func New(raw map[string]any) *Tree {
	return newTree(deepCopyMap(raw), nil)
}

func newTree(raw map[string]any, errs []error) *Tree {
	t := &Tree{
		raw:         raw,
		platforms:   make(map[string]Platform),
		parseErrors: errs,
	}

	for _, name := range sortedKeys(raw) {
		node, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		depRaw, ok := node[KeyDeployment]
		if !ok {
			continue
		}
		dep, err := decodeDeployment(depRaw)
		if err != nil {
			perr := &ConfigParseError{Path: name + "/" + KeyDeployment, Err: err}
			t.parseErrors = append(t.parseErrors, perr)
			logging.Error().Err(err).Str("platform", name).Msg("Invalid deployment configuration")
			continue
		}
		t.platforms[name] = Platform{
			Name:        name,
			Deployment:  dep,
			Instruments: node[KeyInstruments],
		}
	}
	return t
}

func decodeDeployment(raw any) (Deployment, error) {
	var dep Deployment
	data, err := json.Marshal(raw)
	if err != nil {
		return dep, err
	}
	if err := json.Unmarshal(data, &dep); err != nil {
		return dep, err
	}
	if verr := validation.ValidateStruct(&dep); verr != nil {
		return dep, verr
	}
	if dep.PlatformID() == "" {
		return dep, ErrMissingPlatformID
	}
	return dep, nil
}

// Platform returns a copy of the configuration for the named platform.
func (t *Tree) Platform(name string) (Platform, error) {
	p, ok := t.platforms[name]
	if !ok {
		return Platform{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, name)
	}
	p.Deployment.Platform = deepCopyMap(p.Deployment.Platform)
	p.Deployment.GlobalAttributes = deepCopyMap(p.Deployment.GlobalAttributes)
	p.Deployment.TrajectoryID = deepCopy(p.Deployment.TrajectoryID)
	p.Instruments = deepCopy(p.Instruments)
	return p, nil
}

// Platforms returns the names of all platforms with a valid deployment, sorted.
func (t *Tree) Platforms() []string {
	names := make([]string, 0, len(t.platforms))
	for name := range t.platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GlobalAttributes returns a copy of the global attribute defaults.
func (t *Tree) GlobalAttributes() map[string]any {
	m, _ := t.raw[KeyGlobalAttributes].(map[string]any)
	return deepCopyMap(m)
}

// Datatypes returns a copy of the column catalog.
func (t *Tree) Datatypes() any {
	return deepCopy(t.raw[KeyDatatypes])
}

// Raw returns a copy of the whole tree.
func (t *Tree) Raw() map[string]any {
	return deepCopyMap(t.raw)
}

// ParseErrors returns the leaves that failed to load.
func (t *Tree) ParseErrors() []error {
	return append([]error(nil), t.parseErrors...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
