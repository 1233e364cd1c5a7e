package facemesh

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esimov/facemesh/utils"
)

func writeImage(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, encodeImg(f, newFrame(16, 16, gray)))
}

func newExecProcessor() *Processor {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	spinner := utils.NewSpinner("", time.Millisecond)
	spinner.SetWriter(io.Discard)

	return &Processor{
		Config:  DefaultConfig(),
		Logger:  logger,
		Spinner: spinner,
		NewDetector: func() (Detector, error) {
			return &fakeDetector{
				sets: [][]Landmark{{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.75}}},
			}, nil
		},
	}
}

func TestExec_WalkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))

	for _, name := range []string{"a.jpg", "b.PNG", "nested/c.bmp", "notes.txt", "nested/d"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte{0}, 0644))
	}

	done := make(chan struct{})
	defer close(done)

	paths, errc := walkDir(done, dir, validExtensions)

	var found []string
	for path := range paths {
		rel, err := filepath.Rel(dir, path)
		require.NoError(t, err)
		found = append(found, filepath.ToSlash(rel))
	}
	require.NoError(t, <-errc)

	sort.Strings(found)
	assert.Equal(t, []string{"a.jpg", "b.PNG", "nested/c.bmp"}, found)
}

func TestExec_ShouldProcessSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "face.png")
	dst := filepath.Join(dir, "out.png")
	report := filepath.Join(dir, "report.json")
	writeImage(t, src)

	p := newExecProcessor()
	p.Draw = true
	p.Pair = &Pair{Face: 0, From: 0, To: 1}

	err := p.Execute(&Ops{Src: src, Dst: dst, PipeName: "-", JSON: report})
	require.NoError(t, err)

	_, err = os.Stat(dst)
	assert.NoError(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)

	var rep Report
	require.NoError(t, jsoniter.Unmarshal(data, &rep))
	assert.Equal(t, src, rep.Source)
	assert.Equal(t, []Face{{{4, 4}, {12, 12}}}, rep.Faces)
	require.NotNil(t, rep.Distance)
	assert.InDelta(t, 11.3137, rep.Distance.Length, 1e-4)
}

func TestExec_ShouldProcessDirectory(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	report := filepath.Join(t.TempDir(), "report.json")

	for _, name := range []string{"a.jpg", "b.png", "c.gif"} {
		writeImage(t, filepath.Join(src, name))
	}

	p := newExecProcessor()
	err := p.Execute(&Ops{Src: src, Dst: dst, PipeName: "-", JSON: report, Workers: 2})
	require.NoError(t, err)

	for _, name := range []string{"a.jpg", "b.png", "c.gif"} {
		_, err := os.Stat(filepath.Join(dst, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(report)
	require.NoError(t, err)

	var reps []Report
	require.NoError(t, jsoniter.Unmarshal(data, &reps))
	assert.Len(t, reps, 3)
}

func TestExec_ShouldReportFailures(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	writeImage(t, filepath.Join(src, "a.png"))
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.jpg"), []byte("not an image"), 0644))

	p := newExecProcessor()
	err := p.Execute(&Ops{Src: src, Dst: dst, PipeName: "-", Workers: 1})
	assert.Error(t, err)

	_, err = os.Stat(filepath.Join(dst, "broken.jpg"))
	assert.True(t, os.IsNotExist(err), "the output of a failed image should be removed")
}

func TestExec_ShouldRejectInvalidOps(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "face.png")
	writeImage(t, src)

	p := newExecProcessor()

	err := p.Execute(&Ops{Src: filepath.Join(dir, "missing.png"), Dst: filepath.Join(dir, "out.png"), PipeName: "-"})
	assert.Error(t, err)

	err = p.Execute(&Ops{Src: src, Dst: filepath.Join(dir, "out.tiff"), PipeName: "-"})
	assert.Error(t, err)

	err = p.Execute(&Ops{Src: src, Dst: "-", PipeName: "-", JSON: "-"})
	assert.Error(t, err)

	err = p.Execute(&Ops{Src: dir, Dst: "-", PipeName: "-"})
	assert.Error(t, err)
}
