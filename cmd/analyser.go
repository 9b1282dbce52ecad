/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/yogendrarau/Matchify/internal/compat"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatJSON  = "json"
)

// Analysis is a rendered section: a header row, data rows and a summary line.
type Analysis struct {
	title   string
	results [][]string
	summary string
}

func (a Analysis) String() string {
	out := new(bytes.Buffer)
	if a.title != "" {
		fmt.Fprintf(out, "%s\n", a.title)
	}
	if len(a.results) > 1 {
		table := tablewriter.NewWriter(out)
		table.Header(a.results[0])
		for _, row := range a.results[1:] {
			if err := table.Append(row); err != nil {
				return fmt.Sprintf("Error rendering table: %v", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if a.summary != "" {
		fmt.Fprintf(out, "%s\n", a.summary)
	}
	return out.String()
}

// HTML renders the section for an email body.
func (a Analysis) HTML() string {
	var out strings.Builder
	out.WriteString("<div>\n")
	if a.title != "" {
		fmt.Fprintf(&out, "<h2>%s</h2>\n", html.EscapeString(a.title))
	}
	if len(a.results) > 1 {
		out.WriteString("<table>\n<thead>\n<tr>")
		for _, header := range a.results[0] {
			fmt.Fprintf(&out, "<th>%s</th>", html.EscapeString(header))
		}
		out.WriteString("</tr>\n</thead>\n<tbody>\n")
		for _, row := range a.results[1:] {
			out.WriteString("<tr>")
			for _, column := range row {
				fmt.Fprintf(&out, "<td>%s</td>", html.EscapeString(column))
			}
			out.WriteString("</tr>\n")
		}
		out.WriteString("</tbody>\n</table>\n")
	}
	if a.summary != "" {
		fmt.Fprintf(&out, "<div>%s</div>\n", html.EscapeString(a.summary))
	}
	out.WriteString("</div>\n")
	return out.String()
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func resultAnalyses(userA, userB string, res compat.Result) []Analysis {
	breakdown := Analysis{
		title: fmt.Sprintf("Compatibility of %s and %s: %s", userA, userB, score(res.TotalScore)),
		results: [][]string{
			{"Component", "Score"},
			{"Artists", score(res.Breakdown.Artist)},
			{"Genres", score(res.Breakdown.Genre)},
			{"Tracks", score(res.Breakdown.Track)},
		},
	}

	artists := Analysis{title: "Common artists", results: [][]string{{"Artist", "Genres", "Popularity"}}}
	for _, a := range res.CommonArtists {
		artists.results = append(artists.results, []string{a.Name, strings.Join(a.Genres, ", "), strconv.Itoa(a.Popularity)})
	}
	if len(res.CommonArtists) == 0 {
		artists.summary = "No artists in common."
	}

	tracks := Analysis{title: "Common tracks", results: [][]string{{"Track", "Artists", "Popularity"}}}
	for _, t := range res.CommonTracks {
		tracks.results = append(tracks.results, []string{t.Name, strings.Join(t.Artists, ", "), strconv.Itoa(t.Popularity)})
	}
	if len(res.CommonTracks) == 0 {
		tracks.summary = "No tracks in common."
	}

	genres := Analysis{title: "Common genres", summary: strings.Join(res.CommonGenres, ", ")}
	if len(res.CommonGenres) == 0 {
		genres.summary = "No genres in common."
	}

	return []Analysis{breakdown, artists, tracks, genres}
}

func matchesAnalysis(user string, matches []compat.Match) Analysis {
	a := Analysis{
		title:   "Best matches for " + user,
		results: [][]string{{"Rank", "User", "Score", "Common genres"}},
	}
	for i, m := range matches {
		a.results = append(a.results, []string{
			strconv.Itoa(i + 1), m.User, score(m.Result.TotalScore), strings.Join(m.Result.CommonGenres, ", "),
		})
	}
	if len(matches) == 0 {
		a.summary = "No matches found."
	}
	return a
}

func summaryAnalyses(user string, s compat.TasteSummary) []Analysis {
	genres := Analysis{
		title:   fmt.Sprintf("Taste summary for %s (%s)", user, s.TimeRange),
		results: [][]string{{"Genre", "Artists"}},
		summary: fmt.Sprintf("%d top artists, %d top tracks", s.TotalArtists, s.TotalTracks),
	}
	for _, g := range s.TopGenres {
		genres.results = append(genres.results, []string{g.Genre, strconv.Itoa(g.Count)})
	}

	artists := Analysis{title: "Top artists", results: [][]string{{"Artist", "Popularity"}}}
	for _, a := range s.TopArtists {
		artists.results = append(artists.results, []string{a.Name, strconv.Itoa(a.Popularity)})
	}

	tracks := Analysis{title: "Top tracks", results: [][]string{{"Track", "Artists", "Popularity"}}}
	for _, t := range s.TopTracks {
		tracks.results = append(tracks.results, []string{t.Name, strings.Join(t.Artists, ", "), strconv.Itoa(t.Popularity)})
	}

	return []Analysis{genres, artists, tracks}
}

// render writes v in the requested format. Table output uses the analyses.
func render(w io.Writer, format string, v any, analyses []Analysis) error {
	switch format {
	case "", formatTable:
		for _, a := range analyses {
			if _, err := fmt.Fprintln(w, a); err != nil {
				return err
			}
		}
		return nil
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return encoder.Close()
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q: expected table, yaml or json", format)
}
