package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relgraph/graph"
)

// Output formats
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

type graphView struct {
	DefaultSchema string         `json:"default_schema,omitempty" yaml:"default_schema,omitempty"`
	Relations     []relationView `json:"relations" yaml:"relations"`
	Errors        []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type relationView struct {
	Name         string            `json:"name" yaml:"name"`
	View         bool              `json:"view,omitempty" yaml:"view,omitempty"`
	PrimaryKey   []string          `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Associations []associationView `json:"associations,omitempty" yaml:"associations,omitempty"`
}

type associationView struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind" yaml:"kind"`
	Table      string   `json:"table,omitempty" yaml:"table,omitempty"`
	Candidates []string `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	FK         []string `json:"fk" yaml:"fk"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
	Constraint string   `json:"constraint" yaml:"constraint"`
	Optional   bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
}

func newGraphView(g *graph.Graph) graphView {
	v := graphView{DefaultSchema: g.DefaultSchema()}
	for _, r := range g.Relations() {
		rv := relationView{Name: r.Key(), View: r.IsView, PrimaryKey: r.PrimaryKey}
		for _, k := range r.BelongsToNames() {
			rv.Associations = append(rv.Associations, newAssociationView(r.BelongsTo[k], r.BelongsTo[k].Name))
		}
		for _, k := range r.HasManyNames() {
			a := r.HasMany[k]
			rv.Associations = append(rv.Associations, newAssociationView(a, g.HasManyName(a)))
		}
		v.Relations = append(v.Relations, rv)
	}
	for _, err := range g.Report().Errors {
		v.Errors = append(v.Errors, err.Error())
	}
	for _, err := range g.Report().Warnings {
		v.Warnings = append(v.Warnings, err.Error())
	}
	return v
}

func newAssociationView(a *graph.Association, name string) associationView {
	v := associationView{
		Name:       name,
		Kind:       a.Kind.String(),
		Table:      a.InverseTable,
		FK:         a.FK,
		References: a.References,
		Constraint: a.Constraint,
		Optional:   a.Optional,
	}
	for _, c := range a.Candidates {
		v.Candidates = append(v.Candidates, c.Type+":"+c.Table)
	}
	return v
}

func writeGraphText(w io.Writer, v graphView) {
	for _, r := range v.Relations {
		kind := "table"
		if r.View {
			kind = "view"
		}
		fmt.Fprintf(w, "%s %s %v\n", kind, r.Name, r.PrimaryKey)
		for _, a := range r.Associations {
			target := a.Table
			if len(a.Candidates) > 0 {
				target = fmt.Sprint(a.Candidates)
			}
			fmt.Fprintf(w, "  %-10s %-24s %v -> %s\n", a.Kind, a.Name, a.FK, target)
		}
	}
	for _, e := range v.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, e := range v.Warnings {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}
