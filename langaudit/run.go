package langaudit

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	obs "github.com/KamdynS/agent-contrib/observability"
)

const (
	DefaultInputDir  = "input"
	DefaultOutputDir = "output"
)

// ErrNoURLColumn is returned for input without a url column.
var ErrNoURLColumn = errors.New("CSV must have a 'url' column")

// PoliteDelay waits a random 1.0 to 2.5 seconds between pages.
func PoliteDelay() time.Duration {
	return time.Second + time.Duration(rand.Int64N(int64(1500*time.Millisecond)))
}

// Job audits every URL of one CSV file.
type Job struct {
	Auditor   *Auditor
	InputDir  string
	OutputDir string
	// Delay is the pause between two URLs. Defaults to PoliteDelay.
	Delay  func() time.Duration
	Now    func() time.Time
	Logger *zerolog.Logger
}

// NewJob reads from input/ and writes to output/.
func NewJob() *Job {
	return &Job{Auditor: NewAuditor(), InputDir: DefaultInputDir, OutputDir: DefaultOutputDir, Delay: PoliteDelay, Now: time.Now}
}

// Summary describes a finished run.
type Summary struct {
	Input    string
	Output   string
	URLs     int
	Critical int
	Fix      int
	Keep     int
	Errors   int
}

func (s Summary) String() string {
	return fmt.Sprintf("Audit of %s completed successfully in %s: %d URLs (%d critical, %d fix, %d keep, %d errors). Results: %s",
		s.Input, filepath.Dir(s.Output), s.URLs, s.Critical, s.Fix, s.Keep, s.Errors, s.Output)
}

// Run audits InputDir/name and writes OutputDir/{YYYY_MM_DD_HH_MM}_result.csv.
// Input columns are kept and the result columns appended.
func (j *Job) Run(ctx context.Context, name string) (Summary, error) {
	log := obs.LoggerOr(j.Logger, "langaudit")
	sum := Summary{Input: name}
	if name != filepath.Base(name) {
		return sum, fmt.Errorf("input must be a file name, got %q", name)
	}
	records, err := readCSV(filepath.Join(j.InputDir, name))
	if err != nil {
		return sum, err
	}
	if len(records) == 0 {
		return sum, ErrNoURLColumn
	}
	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	urlCol := slices.Index(header, "url")
	if urlCol < 0 {
		return sum, ErrNoURLColumn
	}
	rows := records[1:]

	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	delay := j.Delay
	if delay == nil {
		delay = PoliteDelay
	}
	if err := os.MkdirAll(j.OutputDir, 0o755); err != nil {
		return sum, err
	}
	sum.Output = filepath.Join(j.OutputDir, now().Format("2006_01_02_15_04")+"_result.csv")

	out := make([][]string, 0, len(rows)+1)
	out = append(out, append(slices.Clone(header), Columns...))
	for i, row := range rows {
		u := ""
		if urlCol < len(row) {
			u = strings.TrimSpace(row[urlCol])
		}
		log.Info().Int("index", i+1).Int("total", len(rows)).Str("url", u).Msg("auditing")
		res := j.Auditor.Audit(ctx, u)
		sum.URLs++
		switch res.Status {
		case StatusCritical:
			sum.Critical++
		case StatusFix:
			sum.Fix++
		case StatusKeep:
			sum.Keep++
		default:
			sum.Errors++
		}
		padded := slices.Clone(row)
		for len(padded) < len(header) {
			padded = append(padded, "")
		}
		out = append(out, append(padded, res.Row()...))

		if i < len(rows)-1 {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-time.After(delay()):
			}
		}
	}
	if err := writeCSV(sum.Output, out); err != nil {
		return sum, err
	}
	log.Info().Str("output", sum.Output).Int("urls", sum.URLs).Msg("audit complete")
	return sum, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input file not found: %s", filepath.Base(path))
		}
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
