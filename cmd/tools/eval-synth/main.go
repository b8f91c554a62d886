// Command eval-synth judges how well a synthetic transaction batch matches
// a reference batch: per-field frequency tables with total-variation
// distance and a chi-square statistic, plus an hourly-volume overlay plot.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tollgate-data/gantryflow/internal/db"
)

func main() {
	synthPath := flag.String("db", "", "synthetic database (required)")
	refPath := flag.String("ref", "", "reference database (required)")
	plotPath := flag.String("plot", "hourly_volume.png", "hourly-volume overlay PNG output")
	flag.Parse()

	if *synthPath == "" || *refPath == "" {
		log.Fatal("Both -db and -ref are required")
	}

	synth, err := db.OpenDB(*synthPath)
	if err != nil {
		log.Fatalf("Failed to open synthetic database: %v", err)
	}
	defer synth.Close()

	ref, err := db.OpenDB(*refPath)
	if err != nil {
		log.Fatalf("Failed to open reference database: %v", err)
	}
	defer ref.Close()

	fields := []struct {
		name string
		expr string
	}{
		{"section_id", "section_id"},
		{"vehicle_type", "COALESCE(vehicle_type, '')"},
		{"gantry_type", "COALESCE(gantry_type, '')"},
		{"hour_of_day", "strftime('%H', transaction_time)"},
	}

	fmt.Println("=== Synthetic vs Reference: gantry_transactions ===")
	for _, f := range fields {
		synthFreq, err := frequencies(synth, f.expr)
		if err != nil {
			log.Fatalf("Failed to read synthetic %s frequencies: %v", f.name, err)
		}
		refFreq, err := frequencies(ref, f.expr)
		if err != nil {
			log.Fatalf("Failed to read reference %s frequencies: %v", f.name, err)
		}
		report(f.name, synthFreq, refFreq)
	}

	if err := plotHourlyVolumes(synth, ref, *plotPath); err != nil {
		log.Fatalf("Failed to plot hourly volumes: %v", err)
	}
	log.Printf("✓ Hourly volume overlay written to %s", *plotPath)
}

// frequencies counts gantry transactions grouped by the SQL expression.
func frequencies(database *db.DB, expr string) (map[string]float64, error) {
	rows, err := database.Query("SELECT " + expr + ", COUNT(*) FROM gantry_transactions GROUP BY 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	freq := map[string]float64{}
	for rows.Next() {
		var key string
		var count float64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		freq[key] = count
	}
	return freq, rows.Err()
}

// report prints the frequency table for one field with its
// total-variation distance and chi-square statistic.
func report(field string, synthFreq, refFreq map[string]float64) {
	keys := map[string]bool{}
	for k := range synthFreq {
		keys[k] = true
	}
	for k := range refFreq {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var synthTotal, refTotal float64
	for _, v := range synthFreq {
		synthTotal += v
	}
	for _, v := range refFreq {
		refTotal += v
	}
	if synthTotal == 0 || refTotal == 0 {
		fmt.Printf("\n--- %s: no data (synthetic %d, reference %d) ---\n",
			field, int(synthTotal), int(refTotal))
		return
	}

	fmt.Printf("\n--- %s ---\n", field)
	fmt.Printf("%-16s %12s %12s\n", "value", "synthetic", "reference")

	tv := 0.0
	var obs, exp []float64
	for _, k := range sorted {
		p := synthFreq[k] / synthTotal
		q := refFreq[k] / refTotal
		tv += math.Abs(p - q)
		fmt.Printf("%-16s %11.2f%% %11.2f%%\n", k, p*100, q*100)

		// Chi-square needs expected counts at the synthetic sample size;
		// zero-expectation cells are skipped (the TV distance covers them).
		if q > 0 {
			obs = append(obs, synthFreq[k])
			exp = append(exp, q*synthTotal)
		}
	}
	tv /= 2

	fmt.Printf("total-variation distance: %.4f\n", tv)
	fmt.Printf("chi-square statistic:     %.2f (%d cells)\n", stat.ChiSquare(obs, exp), len(obs))
}

// plotHourlyVolumes overlays the normalized hourly transaction volume of
// both databases on one PNG.
func plotHourlyVolumes(synth, ref *db.DB, path string) error {
	synthHours, err := hourlyShares(synth)
	if err != nil {
		return err
	}
	refHours, err := hourlyShares(ref)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Hourly Transaction Volume"
	p.X.Label.Text = "Hour of Day"
	p.Y.Label.Text = "Share of Traffic"

	synthLine, err := plotter.NewLine(hourPoints(synthHours))
	if err != nil {
		return err
	}
	synthLine.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	synthLine.Width = vg.Points(1)
	p.Add(synthLine)
	p.Legend.Add("synthetic", synthLine)

	refLine, err := plotter.NewLine(hourPoints(refHours))
	if err != nil {
		return err
	}
	refLine.Color = color.RGBA{R: 60, G: 60, B: 220, A: 255}
	refLine.Width = vg.Points(1)
	p.Add(refLine)
	p.Legend.Add("reference", refLine)

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

func hourlyShares(database *db.DB) ([24]float64, error) {
	var shares [24]float64
	rows, err := database.Query(`SELECT CAST(strftime('%H', transaction_time) AS INTEGER), COUNT(*)
		FROM gantry_transactions GROUP BY 1`)
	if err != nil {
		return shares, err
	}
	defer rows.Close()

	total := 0.0
	for rows.Next() {
		var hour int
		var count float64
		if err := rows.Scan(&hour, &count); err != nil {
			return shares, err
		}
		if hour >= 0 && hour < 24 {
			shares[hour] = count
			total += count
		}
	}
	if err := rows.Err(); err != nil {
		return shares, err
	}
	if total > 0 {
		for i := range shares {
			shares[i] /= total
		}
	}
	return shares, nil
}

func hourPoints(shares [24]float64) plotter.XYs {
	pts := make(plotter.XYs, 24)
	for h := 0; h < 24; h++ {
		pts[h] = plotter.XY{X: float64(h), Y: shares[h]}
	}
	return pts
}
