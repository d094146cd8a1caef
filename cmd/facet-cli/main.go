package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/facetdata/facet"
	"github.com/facetdata/facet/internal/config"
	"github.com/facetdata/facet/internal/version"
)

func customUsage() {
	fmt.Fprintf(os.Stderr, "Facet DataFrame Library CLI (version %s)\n\n", version.Version)
	fmt.Fprintf(os.Stderr, "Usage: facet-cli [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	fmt.Fprintf(os.Stderr, "  --demo\n\t\tRun the demo pipeline\n")
	fmt.Fprintf(os.Stderr, "  --rows N\n\t\tNumber of rows to generate (default: 1000)\n")
	fmt.Fprintf(os.Stderr, "  --config FILE\n\t\tLoad configuration from FILE (json or yaml)\n")
	fmt.Fprintf(os.Stderr, "  -v, --version\n\t\tPrint version information and exit\n")
	fmt.Fprintf(os.Stderr, "  -h, --help\n\t\tShow this help message and exit\n")
}

func main() {
	versionFlag := flag.Bool("v", false, "Print version and exit")
	flag.BoolVar(versionFlag, "version", false, "Print version and exit") // alias
	demoFlag := flag.Bool("demo", false, "Run the demo pipeline")
	rowsFlag := flag.Int("rows", 0, "Number of rows to generate")
	configFlag := flag.String("config", "", "Configuration file")

	flag.Usage = customUsage
	flag.Parse()

	if *versionFlag {
		fmt.Print(version.Info().String())
		if !version.IsRelease() {
			fmt.Println("Pre-release build")
		}
		return
	}

	cfg := config.LoadFromEnv()
	if *configFlag != "" {
		loaded, err := config.LoadFromFile(*configFlag)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	config.SetGlobalConfig(cfg)

	if !*demoFlag {
		flag.Usage()
		os.Exit(1)
	}
	if err := runDemo(*rowsFlag, cfg.VerboseLogging); err != nil {
		log.Fatalf("demo: %v", err)
	}
}

func runDemo(rows int, verbose bool) error {
	if rows <= 0 {
		rows = 1000
	}

	ns, err := facet.NewNamespace("arrow")
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()

	names := make([]string, rows)
	ages := make([]int64, rows)
	salaries := make([]float64, rows)
	departments := make([]string, rows)
	depts := []string{"Engineering", "Sales", "Marketing", "HR", "Finance"}
	for i := 0; i < rows; i++ {
		names[i] = fmt.Sprintf("Employee_%d", i+1)
		ages[i] = int64(25 + i%40)
		salaries[i] = float64(40000 + (i%60)*1000)
		departments[i] = depts[i%len(depts)]
	}

	columns := make([]facet.Column, 0, 4)
	for _, spec := range []struct {
		name   string
		values interface{}
	}{
		{"name", names},
		{"age", ages},
		{"salary", salaries},
		{"department", departments},
	} {
		var col facet.Column
		switch v := spec.values.(type) {
		case []string:
			col, err = facet.NewSeries(spec.name, v, mem)
		case []int64:
			col, err = facet.NewSeries(spec.name, v, mem)
		case []float64:
			col, err = facet.NewSeries(spec.name, v, mem)
		}
		if err != nil {
			return err
		}
		columns = append(columns, col)
	}

	df, err := ns.NewDataFrame(columns...)
	if err != nil {
		return err
	}
	defer df.Release()

	fmt.Printf("Created DataFrame with %d rows and %d columns\n", df.Len(), df.Width())
	fmt.Println("Columns:", df.Columns())

	start := time.Now()
	result, err := df.Lazy().
		Filter(facet.Col("age").Gt(facet.Lit(int64(35)))).
		WithColumns(facet.Col("salary").Mul(facet.Lit(0.1)).Alias("bonus")).
		GroupBy("department").
		Agg(
			facet.Count(facet.Col("name")).As("headcount"),
			facet.Mean(facet.Col("salary")).As("avg_salary"),
			facet.Sum(facet.Col("bonus")).As("total_bonus"),
		).
		Sort("department").
		Collect()
	if err != nil {
		return err
	}
	defer result.Release()

	if verbose {
		fmt.Printf("Pipeline took %s\n", time.Since(start))
	}
	fmt.Println(result)
	return nil
}
