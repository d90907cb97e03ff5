package codegen

import (
	"github.com/FocuswithJustin/codemask/core/checksum"
	"github.com/FocuswithJustin/codemask/core/marker"
)

// RegionReport describes one generated region without regenerating it.
type RegionReport struct {
	Identifier string
	Line       int
	// Lines is the number of lines of code between the markers.
	Lines    int
	Stored   checksum.Checksum
	Actual   checksum.Hash
	Verified bool
}

// Inspect parses source and reports on each generated region. Checksum
// mismatches are reported, not returned as errors; only parse errors fail.
func Inspect(source string) ([]RegionReport, error) {
	regions, err := marker.Parse(source)
	if err != nil {
		return nil, err
	}

	var reports []RegionReport
	for _, r := range regions {
		if r.Kind != marker.Generated {
			continue
		}
		actual := checksum.SumString(r.Code)
		reports = append(reports, RegionReport{
			Identifier: r.Identifier,
			Line:       r.Line,
			Lines:      countLines(r.Code),
			Stored:     r.Checksum,
			Actual:     actual,
			Verified:   r.Checksum.Matches(actual),
		})
	}
	return reports, nil
}

// Check verifies every generated region of source against its stored
// checksum without changing any content. It reports whether Generate would
// rewrite the file purely to normalize checksum lengths for cfg.
func Check(source string, cfg Config) (bool, error) {
	_, changed, err := Generate(source, cfg, func(string, *Output) (Usage, error) {
		return Ignore, nil
	})
	return changed, err
}

func countLines(code string) int {
	n := 0
	for i := 0; i < len(code); i++ {
		if code[i] == '\n' {
			n++
		}
	}
	return n
}
