package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
)

const tableTSV = "SubjectID\tVisit\tPC1\tPC2\n" +
	"S1\tBaseline\t-0.40\t0.10\n" +
	"S1\tWeek4\t0.30\t0.20\n" +
	"S2\tBaseline\t0.00\t-0.30\n" +
	"S2\tWeek4\t0.10\t0.40\n" +
	"S3\tBaseline\t0.50\t0.50\n"

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "pcoa.tsv")
	require.NoError(t, os.WriteFile(path, []byte(tableTSV), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExpandPath(t *testing.T) {
	home := setupHome(t)
	abs, err := filepath.Abs("relative/path")
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"home directory expansion", "~/test/path", filepath.Join(home, "test/path")},
		{"absolute path unchanged", "/absolute/path", "/absolute/path"},
		{"relative path converted to absolute", "relative/path", abs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func TestParseColors(t *testing.T) {
	colors, err := parseColors([]string{"Baseline=navy", " Week4 = #ff7f0e "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Baseline": "navy", "Week4": "#ff7f0e"}, colors)

	for _, bad := range []string{"navy", "=navy", "Baseline="} {
		_, err := parseColors([]string{bad})
		assert.True(t, errors.Is(err, model.ErrInvalidConfig), bad)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFailure},
		{fmt.Errorf("wrap: %w", model.ErrSchema), ExitSchema},
		{fmt.Errorf("wrap: %w", model.ErrNoQualifyingSubjects), ExitNoSubjects},
		{fmt.Errorf("wrap: %w", model.ErrEncoderUnavailable), ExitEncoder},
		{fmt.Errorf("wrap: %w", model.ErrEncode), ExitEncoder},
		{errors.Join(errors.New("a"), fmt.Errorf("b: %w", model.ErrSchema)), ExitSchema},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestBuildConfigFromFlags(t *testing.T) {
	cmd, opts := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--visits", "Baseline, Week4", "--subjects", "S1,S2",
		"--color", "Baseline=navy", "--frames", "12", "--format", "mp4", "-o", "x.mp4",
	}))

	cfg, err := buildConfig(cmd, opts, "in.tsv")

	require.NoError(t, err)
	assert.Equal(t, "in.tsv", cfg.Input)
	assert.Equal(t, []string{"Baseline", "Week4"}, cfg.Visits)
	assert.Equal(t, []string{"S1", "S2"}, cfg.Subjects)
	assert.Equal(t, map[string]string{"Baseline": "navy"}, cfg.Colors)
	assert.Equal(t, 12, cfg.FramesPerSegment)
	assert.Equal(t, "mp4", cfg.Format)
	assert.Equal(t, "x.mp4", cfg.Output)
	assert.Equal(t, "SubjectID", cfg.Columns.Subject)
	assert.Equal(t, 800, cfg.Width)
}

func TestBuildConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracevis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frames: 40\nformat: frames\nwidth: 640\ncolors:\n  Week4: red\n"), 0644))

	cmd, opts := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--frames", "8", "--color", "Baseline=blue"}))

	cfg, err := buildConfig(cmd, opts, "in.tsv")

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.FramesPerSegment)
	assert.Equal(t, "frames", cfg.Format)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, map[string]string{"Week4": "red", "Baseline": "blue"}, cfg.Colors)
}

func TestBuildConfigRejectsExplicitZero(t *testing.T) {
	for _, name := range []string{"frames", "interval", "width", "height"} {
		t.Run(name, func(t *testing.T) {
			cmd, opts := newRootCommand()
			require.NoError(t, cmd.ParseFlags([]string{"--" + name, "0"}))

			_, err := buildConfig(cmd, opts, "in.tsv")

			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidConfig))
			assert.Contains(t, err.Error(), "--"+name)
		})
	}
}

func TestRenderCommandZeroFramesExitCode(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home)

	_, err := execute(t, input, "--frames", "0", "-o", filepath.Join(home, "a.gif"), "--report", "none")

	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestRenderCommandJSONReport(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home)
	output := filepath.Join(home, "anim.gif")

	out, err := execute(t, input, "-o", output, "--frames", "5", "--width", "320", "--height", "240", "--report", "json")

	require.NoError(t, err)
	var report formatter.Report
	require.NoError(t, sonic.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Included)
	assert.Equal(t, 1, report.Excluded)
	require.NotNil(t, report.Render)
	assert.Equal(t, 5, report.Render.TotalFrames)
	assert.FileExists(t, output)
	assert.FileExists(t, filepath.Join(home, ".tracevis", "logs", "app.log"))
}

func TestRenderCommandNoQualifyingSubjects(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home)

	out, err := execute(t, input, "-o", filepath.Join(home, "a.gif"), "--subjects", "S3", "--report", "csv")

	require.Error(t, err)
	assert.Equal(t, ExitNoSubjects, ExitCode(err))
	assert.Contains(t, out, "S3,excluded,Baseline,Week4")
}

func TestRenderCommandSchemaError(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home)

	_, err := execute(t, input, "--pc1-col", "Axis1", "--report", "none")

	assert.Equal(t, ExitSchema, ExitCode(err))
}

func TestRenderCommandBadColor(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home)

	_, err := execute(t, input, "--color", "Baseline")

	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestRenderCommandRequiresInput(t *testing.T) {
	setupHome(t)
	_, err := execute(t)
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home)

	out, err := execute(t, "inspect", input, "--report", "summary")

	require.NoError(t, err)
	assert.Contains(t, out, "Columns:   SubjectID, Visit, PC1, PC2")
	assert.Contains(t, out, "Visits:    Baseline (3), Week4 (2)")
	assert.Contains(t, out, "Included:  2 of 3 subjects")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "tracevis dev")
}
