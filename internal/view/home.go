package view

import (
	"context"

	"cteview/internal/session"
)

// DPIURL points at the state's CTE program pages.
const DPIURL = "https://www.dpi.nc.gov/districts-schools/classroom-resources/career-and-technical-education"

var homeParagraphs = []string{
	"This app explores county-level data on student enrollment in North Carolina's Education System (NCED), with a focus on Career and Technical Education (CTE) programs. It provides insights into the diversity of career clusters across counties and tracks employment projections from 2021 to 2030.",
	"Scatter Plot of CTE Data: interactive plot that lets you pick the x and y axis to see distinct trends within CTE data, such as students enrolled against those enrolled in CTE courses or concentrating in a CTE pathway.",
	"Unique Career Cluster Totals by County: the diversity of career clusters across counties, with the overall ranking and the bottom 10 counties for career cluster participation.",
	"Employment Projections (2021 vs. 2030): projected employment across industries, a glimpse into future workforce trends.",
	"Dive into the data to explore how CTE programs are shaping future career opportunities at the county level.",
}

// Home renders the static landing page.
func Home() Handler {
	return HandlerFunc(func(_ context.Context, _ Request) Page {
		return Page{
			View:       session.ViewHome,
			Title:      "NCED: CTE Data Application",
			Paragraphs: append([]string(nil), homeParagraphs...),
			Links:      []Link{{Text: "More info on CTE programs can be found here:", URL: DPIURL}},
		}
	})
}
