package fixtures

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cohort describes a synthetic PCoA table.
type Cohort struct {
	Subjects  int
	Visits    []string
	Delimiter rune
	// Every DropEvery-th subject has no row for its last visit. Zero keeps
	// every subject complete.
	DropEvery int
	// Every NAEvery-th row carries NA in PC1. Zero disables.
	NAEvery int
}

// SubjectID is the id the generator gives the i-th subject, counting from 1.
func SubjectID(i int) string {
	return fmt.Sprintf("S%03d", i)
}

// Complete reports how many subjects have a usable row for every visit.
func (c Cohort) Complete() int {
	if c.DropEvery <= 0 {
		return c.Subjects
	}
	return c.Subjects - c.Subjects/c.DropEvery
}

// Content renders the cohort as delimited text with a SubjectID, Visit, PC1,
// PC2 header. Subjects spiral outwards so coordinates differ per visit.
func (c Cohort) Content() string {
	sep := string(c.delimiter())
	var b strings.Builder
	b.WriteString(strings.Join([]string{"SubjectID", "Visit", "PC1", "PC2"}, sep))
	b.WriteByte('\n')

	row := 0
	for i := 1; i <= c.Subjects; i++ {
		visits := c.Visits
		if c.DropEvery > 0 && i%c.DropEvery == 0 && len(visits) > 0 {
			visits = visits[:len(visits)-1]
		}
		for j, visit := range visits {
			row++
			angle := float64(i)*0.7 + float64(j)*0.4
			radius := 0.1 + 0.05*float64(j)
			pc1 := strconv.FormatFloat(radius*math.Cos(angle), 'f', 4, 64)
			pc2 := strconv.FormatFloat(radius*math.Sin(angle), 'f', 4, 64)
			if c.NAEvery > 0 && row%c.NAEvery == 0 {
				pc1 = "NA"
			}
			b.WriteString(strings.Join([]string{SubjectID(i), visit, pc1, pc2}, sep))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (c Cohort) delimiter() rune {
	if c.Delimiter == 0 {
		return '\t'
	}
	return c.Delimiter
}

// TableGenerator writes cohort tables below a base directory.
type TableGenerator struct {
	baseDir string
}

// NewTableGenerator creates a generator rooted at baseDir.
func NewTableGenerator(baseDir string) *TableGenerator {
	return &TableGenerator{baseDir: baseDir}
}

// Generate writes the cohort to name, creating parent directories, and
// returns the full path.
func (g *TableGenerator) Generate(name string, cohort Cohort) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(cohort.Content()), 0644); err != nil {
		return "", err
	}
	return path, nil
}
