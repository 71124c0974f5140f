// Command genmock generates synthetic station observation files for local
// pipeline runs and test fixtures. Output matches the raw wire format: one
// tab-separated line per day with tenths-encoded values and the missing
// sentinel sprinkled in. Generation is seeded, so the same flags always
// produce the same files.
//
// Usage:
//
//	go run ./cmd/genmock -out data/incoming -stations 3 -days 365 -seed 7
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for station files")
	stations := flag.Int("stations", 3, "number of station files to generate")
	days := flag.Int("days", 365, "number of daily records per station")
	start := flag.String("start", "2020-01-01", "first observation date (YYYY-MM-DD)")
	seed := flag.Int64("seed", 1, "random seed")
	missingRate := flag.Float64("missing-rate", 0.05, "probability a field carries the missing sentinel")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *stations; i++ {
		id := fmt.Sprintf("USC%08d", 110000+i*1000)
		path := filepath.Join(*out, id+".txt")
		if err := writeStationFile(path, startDate, *days, *missingRate, rng); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: %d records", path, *days)
	}
	return nil
}

func writeStationFile(path string, start time.Time, days int, missingRate float64, rng *rand.Rand) error {
	var b strings.Builder
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)

		// Seasonal temperature curve in tenths of a degree, peaking in July.
		phase := 2 * math.Pi * float64(date.YearDay()) / 365.0
		base := 120.0 - 150.0*math.Cos(phase)
		maxT := int(base + rng.NormFloat64()*40)
		minT := maxT - 80 - int(rng.Float64()*60)
		precip := 0
		if rng.Float64() < 0.3 {
			precip = rng.Intn(300)
		}

		line := strings.Join([]string{
			date.Format("20060102"),
			field(maxT, missingRate, rng),
			field(minT, missingRate, rng),
			field(precip, missingRate, rng),
		}, "\t")

		// Every generated line must decode; a bad fixture is a bug here.
		if _, err := domain.Decode(line); err != nil {
			return fmt.Errorf("generated undecodable line %q: %w", line, err)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func field(v int, missingRate float64, rng *rand.Rand) string {
	if rng.Float64() < missingRate {
		return domain.Sentinel
	}
	return strconv.Itoa(v)
}
