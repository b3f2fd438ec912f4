/*
 * Copyright (c) 2023, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package report

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Printable is anything that can be rendered as a table.
type Printable interface {
	Headers() []string
	Values() [][]string
}

type OutputWriter interface {
	Write(v Printable) error
}

type CSVWriter struct {
	w io.Writer
}

type TextWriter struct {
	w io.Writer
}

type JSONWriter struct {
	w io.Writer
}

type YAMLWriter struct {
	w io.Writer
}

var Formats = []string{"text", "csv", "json", "yaml"}

func NewOutputWriter(w io.Writer, t string) OutputWriter {
	switch t {
	case "csv":
		return CSVWriter{
			w,
		}
	case "json":
		return JSONWriter{
			w,
		}
	case "yaml":
		return YAMLWriter{
			w,
		}
	}
	return TextWriter{
		w,
	}
}

func (w CSVWriter) Write(v Printable) error {
	wtr := csv.NewWriter(w.w)
	if err := wtr.Write(v.Headers()); err != nil {
		return err
	}
	return wtr.WriteAll(v.Values())
}

func (w TextWriter) Write(v Printable) error {
	headers := v.Headers()
	hdrs := make([]any, len(headers))
	for i := range headers {
		hdrs[i] = headers[i]
	}

	table := tablewriter.NewWriter(w.w)
	table.Header(hdrs...)
	if err := table.Bulk(v.Values()); err != nil {
		return err
	}
	return table.Render()
}

// Write emits one object per row, keyed by header. Types that know how to
// marshal themselves are encoded as-is.
func (w JSONWriter) Write(v Printable) error {
	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")

	if m, ok := v.(json.Marshaler); ok {
		return enc.Encode(m)
	}

	headers := v.Headers()
	rows := []map[string]string{}
	for _, row := range v.Values() {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				obj[h] = row[i]
			}
		}
		rows = append(rows, obj)
	}
	return enc.Encode(rows)
}

// Write emits a sequence of mappings with keys in header order.
func (w YAMLWriter) Write(v Printable) error {
	headers := v.Headers()
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range v.Values() {
		obj := &yaml.Node{Kind: yaml.MappingNode}
		for i, h := range headers {
			if i >= len(row) {
				break
			}
			obj.Content = append(obj.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: h},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: row[i]},
			)
		}
		doc.Content = append(doc.Content, obj)
	}

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Table is a ready-made Printable.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t Table) Headers() []string {
	return t.Columns
}

func (t Table) Values() [][]string {
	return t.Rows
}

// KeyValue renders pairs as a two column table.
func KeyValue(pairs ...string) Table {
	t := Table{Columns: []string{"Field", "Value"}}
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Rows = append(t.Rows, []string{pairs[i], pairs[i+1]})
	}
	return t
}
