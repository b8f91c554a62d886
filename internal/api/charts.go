package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tollgate-data/gantryflow/internal/anonymize"
)

// chartHourlyFlow renders an HTML bar chart of truck gantry traffic per
// hour of day. Debugging-only endpoint (no auth) for eyeballing flow shape
// without a UI.
func (s *Server) chartHourlyFlow(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.db.TruckHourlyFlow(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to compute truck hourly flow: %v", err))
		return
	}

	counts := make([]int, 24)
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			counts[row.Hour] = row.Count
		}
	}
	hours := make([]string, 24)
	data := make([]opts.BarData, 24)
	for h := 0; h < 24; h++ {
		hours[h] = fmt.Sprintf("%02d", h)
		data[h] = opts.BarData{Value: counts[h]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Truck Hourly Flow", Theme: "dark", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Truck Hourly Flow",
			Subtitle: fmt.Sprintf("%s to %s", start.Format(dateLayout), end.Format(dateLayout)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "hour of day"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "transactions"}),
	)
	bar.SetXAxis(hours)
	bar.AddSeries("trucks", data)

	s.renderChart(w, bar)
}

// chartEquivalenceClasses runs the anonymizer over the requested window
// and renders the equivalence class sizes as a bar chart, for judging how
// close classes sit to the k floor.
func (s *Server) chartEquivalenceClasses(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.db.ExitRecordsForAnonymization(start, end)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load exit records: %v", err))
		return
	}
	result, err := anonymize.New(s.defaultK).Anonymize(records)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to anonymize records: %v", err))
		return
	}

	// Count class sizes by label pair, preserving output order.
	type class struct {
		label string
		size  int
	}
	var classes []class
	index := map[string]int{}
	for _, rec := range result.Records {
		label := rec.SectionRegion + " / " + rec.TimePeriod
		i, ok := index[label]
		if !ok {
			i = len(classes)
			index[label] = i
			classes = append(classes, class{label: label})
		}
		classes[i].size++
	}

	labels := make([]string, len(classes))
	data := make([]opts.BarData, len(classes))
	for i, c := range classes {
		labels[i] = c.label
		data[i] = opts.BarData{Value: c.size}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Equivalence Classes", Theme: "dark", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Equivalence Class Sizes",
			Subtitle: fmt.Sprintf("k=%d records=%d classes=%d suppressed=%d",
				s.defaultK, result.TotalRecords, result.EquivalenceClasses, result.SuppressedCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "class"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "records"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("class size", data)

	s.renderChart(w, bar)
}

func (s *Server) renderChart(w http.ResponseWriter, bar *charts.Bar) {
	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
