package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawEnginesCSV = "Make,Modle,Trim,Engine type,Cylinder layout,Number of cylinders,Engine hp,Year from,Acceleration 0 - 100 km/h (),Mixed fuel consumption per 100 km l,CO2 emissions g/km\n" +
	"Toyota,Corolla,1.8,Gasoline,Inline,4,140,2005,9.5,7.1,165\n" +
	"Toyota,Camry,2.5,Gasoline,Inline,4,181,2012,8.1,7.8,180\n" +
	"BMW,M3,Base,Gasoline,Inline,6,431,2014,4.1,8.8,204\n" +
	"BMW,320i,Base,Gasoline,Inline,4,184,2012,7.3,6.0,140\n" +
	"Tesla,Model S,P85,Electric,,,,2013,4.4,,\n" +
	"Honda,Civic,Type R,Gasoline,Inline,4,306,2017,5.7,7.7,176\n"

func writeFixture(t *testing.T) (in, dir string) {
	t.Helper()
	dir = t.TempDir()
	in = filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(in, []byte(rawEnginesCSV), 0644))
	return in, dir
}

func TestCleanCommand(t *testing.T) {
	in, dir := writeFixture(t)
	out := filepath.Join(dir, "clean.csv")

	root := getRootCmd()
	root.SetArgs([]string{"clean", "--input", in, "--out", out})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "engine_signature")
	assert.Contains(t, content, "hp_per_liter")
	assert.Contains(t, content, "BMW")
}

func TestClusterCommand(t *testing.T) {
	in, dir := writeFixture(t)
	out := filepath.Join(dir, "clustered.csv")

	root := getRootCmd()
	// Five rows carry complete features, so two clusters always fit.
	root.SetArgs([]string{"cluster", "--input", in, "--out", out, "-k", "2"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "cluster_name")
	assert.Contains(t, content, "pca_x")
}

func TestClusterCommand_TooManyClusters(t *testing.T) {
	in, dir := writeFixture(t)
	out := filepath.Join(dir, "clustered.csv")

	root := getRootCmd()
	root.SetArgs([]string{"cluster", "--input", in, "--out", out, "-k", "50"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clustering failed")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReportCommand(t *testing.T) {
	in, dir := writeFixture(t)
	out := filepath.Join(dir, "report.xlsx")

	root := getRootCmd()
	root.SetArgs([]string{"report", "--input", in, "--out", out, "-k", "2"})
	require.NoError(t, root.Execute())

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCleanCommand_MissingInput(t *testing.T) {
	_, dir := writeFixture(t)

	root := getRootCmd()
	root.SetArgs([]string{"clean", "--input", filepath.Join(dir, "nope.csv"), "--out", filepath.Join(dir, "clean.csv")})
	assert.Error(t, root.Execute())
}
