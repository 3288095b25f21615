package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const rule = 60

// ParseLocale validates a BCP 47 tag used for digit grouping.
func ParseLocale(s string) (language.Tag, error) {
	if s == "" {
		return language.English, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", s, err)
	}
	return tag, nil
}

// Render writes the plain-text report. Numbers are grouped per locale.
func Render(w io.Writer, rep *Report, locale language.Tag) error {
	p := message.NewPrinter(locale)
	var b strings.Builder

	b.WriteString("\n COUNTRY DATA REPORT\n")
	b.WriteString(strings.Repeat("=", rule) + "\n")
	fmt.Fprintf(&b, "\n Total Countries: %s\n\n", p.Sprintf("%d", rep.Total))

	b.WriteString(" Average Population by Region:\n")
	for _, r := range rep.Regions {
		fmt.Fprintf(&b, "- %-12s | %d countries (%.1f%%) | Avg Pop: %s\n",
			r.Region, r.Count, r.Percent, p.Sprintf("%d", r.AvgPopulation))
	}

	if rep.MostCountries != nil {
		fmt.Fprintf(&b, "\n Region with Most Countries: %s (%d countries)\n",
			rep.MostCountries.Region, rep.MostCountries.Count)
	} else {
		b.WriteString("\n Region with Most Countries: n/a\n")
	}

	fmt.Fprintf(&b, "\n Top %d Countries by Area:\n", TopAreaLimit)
	for i, c := range rep.TopByArea {
		fmt.Fprintf(&b, "%02d. %-30s | Area: %s km² | Pop: %s\n",
			i+1, c.Name, p.Sprintf("%.0f", c.Area), p.Sprintf("%d", c.Population))
	}

	fmt.Fprintf(&b, "\n Top %d Most Densely Populated Countries (People/km²):\n", TopDensityLimit)
	for i, c := range rep.TopByDensity {
		fmt.Fprintf(&b, "%02d. %-30s | Density: %s people/km²\n",
			i+1, c.Name, p.Sprintf("%.2f", c.Density))
	}

	b.WriteString("\n Largest Country by Area in Each Region:\n")
	for _, c := range rep.LargestByRegion {
		fmt.Fprintf(&b, "- %-12s | %-30s | Area: %s km²\n",
			c.Region, c.Name, p.Sprintf("%.0f", c.Area))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
