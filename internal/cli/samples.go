package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
)

// Sample kinds.
const (
	SampleEcommerce = "ecommerce"
	SampleEmployees = "employees"
	SampleSensors   = "sensors"
)

// SampleOptions configures GenerateSample. The fractions are of rows
// (Duplicates) or of eligible cells (Nulls, Typos).
type SampleOptions struct {
	Kind       string
	Rows       int
	Seed       int64
	Duplicates float64
	Nulls      float64
	Typos      float64
}

// Dataset is a generated CSV document.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// WriteCSV writes the header and rows.
func (d Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(d.Rows); err != nil {
		return err
	}
	return cw.Error()
}

type product struct {
	name, category string
	price          float64
}

var products = []product{
	{"Smartphone", "Electronics", 599.99},
	{"Laptop", "Electronics", 1299.99},
	{"Headphones", "Electronics", 149.99},
	{"Coffee Maker", "Appliances", 89.99},
	{"Blender", "Appliances", 79.99},
	{"Running Shoes", "Sports", 129.99},
	{"Yoga Mat", "Sports", 29.99},
	{"Protein Powder", "Health", 49.99},
	{"Vitamins", "Health", 24.99},
	{"Desk Chair", "Furniture", 199.99},
}

var positions = map[string][]string{
	"Engineering": {"Software Engineer", "Senior Engineer", "Tech Lead", "Engineering Manager"},
	"Marketing":   {"Marketing Specialist", "Digital Marketer", "Marketing Manager", "Brand Manager"},
	"Sales":       {"Sales Representative", "Account Manager", "Sales Manager", "VP Sales"},
	"HR":          {"HR Specialist", "Recruiter", "HR Manager", "VP HR"},
	"Finance":     {"Financial Analyst", "Accountant", "Finance Manager", "CFO"},
	"Operations":  {"Operations Specialist", "Project Manager", "Operations Manager", "VP Operations"},
}

// salaryBands are checked in order; the first title keyword wins.
var salaryBands = []struct {
	keyword  string
	min, max int
}{
	{"CFO", 200000, 300000},
	{"VP", 150000, 200000},
	{"Lead", 95000, 130000},
	{"Manager", 85000, 120000},
	{"Engineer", 70000, 100000},
	{"Analyst", 55000, 75000},
	{"Representative", 40000, 60000},
	{"Specialist", 45000, 65000},
}

type sampleSpec struct {
	header []string
	// typoCols are categorical columns that receive typos.
	typoCols []int
	row      func(f *gofakeit.Faker, i int) []string
}

var sampleSpecs = map[string]sampleSpec{
	SampleEcommerce: {
		header:   []string{"TransactionID", "Date", "ProductName", "Category", "Quantity", "UnitPrice", "TotalAmount", "CustomerType"},
		typoCols: []int{2, 3, 7},
		row:      ecommerceRow,
	},
	SampleEmployees: {
		header:   []string{"EmployeeID", "FirstName", "LastName", "Department", "Position", "Salary", "HireDate", "Age", "YearsExperience"},
		typoCols: []int{3, 4},
		row:      employeeRow,
	},
	SampleSensors: {
		header:   []string{"SensorID", "Timestamp", "SensorType", "Location", "Value", "Unit", "Status"},
		typoCols: []int{2, 3, 6},
		row:      sensorRow,
	},
}

// SampleKinds lists the generators in name order.
func SampleKinds() []string {
	kinds := make([]string, 0, len(sampleSpecs))
	for k := range sampleSpecs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func money(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}

func ecommerceRow(f *gofakeit.Faker, i int) []string {
	p := products[f.Number(0, len(products)-1)]
	customer := f.RandomString([]string{"Premium", "Regular", "New"})
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, f.Number(0, 90))
	qty := f.Number(1, 3)
	unit := p.price * f.Float64Range(0.9, 1.1)
	total := unit * float64(qty)
	if customer == "Premium" && qty > 1 {
		total *= 0.95
	}
	return []string{
		fmt.Sprintf("TXN%04d", i+1),
		date.Format("2006-01-02"),
		p.name,
		p.category,
		strconv.Itoa(qty),
		money(unit),
		money(total),
		customer,
	}
}

func employeeRow(f *gofakeit.Faker, i int) []string {
	depts := make([]string, 0, len(positions))
	for d := range positions {
		depts = append(depts, d)
	}
	sort.Strings(depts)
	dept := depts[f.Number(0, len(depts)-1)]
	title := f.RandomString(positions[dept])

	salary := f.Number(45000, 65000)
	for _, b := range salaryBands {
		if strings.Contains(title, b.keyword) {
			salary = f.Number(b.min, b.max)
			break
		}
	}
	hired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, f.Number(0, 1460))
	return []string{
		fmt.Sprintf("EMP%04d", i+1),
		f.FirstName(),
		f.LastName(),
		dept,
		title,
		strconv.Itoa(salary),
		hired.Format("2006-01-02"),
		strconv.Itoa(f.Number(22, 65)),
		strconv.Itoa(f.Number(0, 25)),
	}
}

func sensorRow(f *gofakeit.Faker, i int) []string {
	kind := f.RandomString([]string{"Temperature", "Humidity", "Pressure", "Motion", "Light"})
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.Number(0, 43200)) * time.Minute)

	var value, unit string
	switch kind {
	case "Temperature":
		value, unit = strconv.FormatFloat(math.Round(f.Float64Range(18, 26)*100)/100, 'f', -1, 64), "°C"
	case "Humidity":
		value, unit = strconv.FormatFloat(math.Round(f.Float64Range(30, 80)*10)/10, 'f', -1, 64), "%"
	case "Pressure":
		value, unit = strconv.FormatFloat(math.Round(f.Float64Range(1010, 1025)*10)/10, 'f', -1, 64), "hPa"
	case "Motion":
		value, unit = strconv.Itoa(f.Number(0, 1)), "boolean"
	default:
		value, unit = strconv.Itoa(f.Number(0, 1000)), "lux"
	}
	return []string{
		fmt.Sprintf("SENSOR_%04d", i+1),
		ts.Format("2006-01-02 15:04:05"),
		kind,
		f.RandomString([]string{"Building A", "Building B", "Building C", "Warehouse", "Parking Lot"}),
		value,
		unit,
		f.RandomString([]string{"Active", "Active", "Active", "Maintenance"}),
	}
}

// GenerateSample builds a seeded dataset and then damages it: appended
// copies of random rows, blanked cells outside the ID column, and
// misspelled categorical values. The same options always yield the same
// bytes.
func GenerateSample(opts SampleOptions) (Dataset, error) {
	spec, ok := sampleSpecs[opts.Kind]
	if !ok {
		return Dataset{}, fmt.Errorf("unknown sample kind %q (want one of %s)", opts.Kind, strings.Join(SampleKinds(), ", "))
	}
	if opts.Rows < 1 {
		return Dataset{}, fmt.Errorf("rows must be positive, got %d", opts.Rows)
	}
	for name, frac := range map[string]float64{"duplicates": opts.Duplicates, "nulls": opts.Nulls, "typos": opts.Typos} {
		if frac < 0 || frac > 1 {
			return Dataset{}, fmt.Errorf("%s must be between 0 and 1, got %g", name, frac)
		}
	}

	f := gofakeit.New(opts.Seed)
	rows := make([][]string, opts.Rows)
	for i := range rows {
		rows[i] = spec.row(f, i)
	}

	for _, i := range pick(f, opts.Rows, opts.Typos*float64(opts.Rows)) {
		col := spec.typoCols[f.Number(0, len(spec.typoCols)-1)]
		rows[i][col] = misspell(f, rows[i][col])
	}

	nullCells := opts.Nulls * float64(opts.Rows*(len(spec.header)-1))
	for n := int(math.Round(nullCells)); n > 0; n-- {
		rows[f.Number(0, opts.Rows-1)][f.Number(1, len(spec.header)-1)] = ""
	}

	for _, i := range pick(f, opts.Rows, opts.Duplicates*float64(opts.Rows)) {
		dup := make([]string, len(rows[i]))
		copy(dup, rows[i])
		rows = append(rows, dup)
	}

	return Dataset{Header: spec.header, Rows: rows}, nil
}

// pick returns round(n) distinct row indexes below limit, in ascending order.
func pick(f *gofakeit.Faker, limit int, n float64) []int {
	want := min(int(math.Round(n)), limit)
	seen := make(map[int]struct{}, want)
	out := make([]int, 0, want)
	for len(out) < want {
		i := f.Number(0, limit-1)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// misspell drops, doubles or swaps one letter.
func misspell(f *gofakeit.Faker, s string) string {
	r := []rune(s)
	if len(r) < 3 {
		return s
	}
	i := f.Number(1, len(r)-2)
	switch f.Number(0, 2) {
	case 0:
		r = append(r[:i:i], r[i+1:]...)
	case 1:
		r = append(r[:i+1:i+1], r[i:]...)
	default:
		r[i], r[i+1] = r[i+1], r[i]
	}
	return string(r)
}

func newSamplesCmd() *cobra.Command {
	opts := SampleOptions{Kind: SampleEcommerce}
	var output string

	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Generate a messy sample dataset",
		Long: "Generate a seeded sample dataset with injected duplicates, blank cells and typos,\n" +
			"for trying out cleaning recipes. Kinds: " + strings.Join(SampleKinds(), ", ") + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := GenerateSample(opts)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, ds.WriteCSV); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d %s rows to %s\n", len(ds.Rows), opts.Kind, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", SampleEcommerce, "dataset kind: "+strings.Join(SampleKinds(), ", "))
	cmd.Flags().IntVar(&opts.Rows, "rows", 200, "number of generated rows before duplicates")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&opts.Duplicates, "duplicates", 0.05, "fraction of rows to duplicate")
	cmd.Flags().Float64Var(&opts.Nulls, "nulls", 0.03, "fraction of non-ID cells to blank")
	cmd.Flags().Float64Var(&opts.Typos, "typos", 0.03, "fraction of rows with a misspelled category")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	return cmd
}
