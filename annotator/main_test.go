package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	1000	.	A	G	50	PASS	.
1	2000	.	A	AT	50	PASS	DP=10
2	3000	.	ACG	A	50	PASS	.
2	4000	.	AT	GC	50	PASS	.
`

func TestAnnotateProducesArtifactsBesideInput(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "a.vcf")
	require.NoError(t, os.WriteFile(inputPath, []byte(sampleVCF), 0o644))

	counts, annotated, err := annotate(inputPath)
	require.NoError(t, err)

	assert.Equal(t, 4, annotated)
	assert.Equal(t, 1, counts["SNV"])
	assert.Equal(t, 1, counts["INS"])
	assert.Equal(t, 1, counts["DEL"])
	assert.Equal(t, 1, counts["MNV"])

	result, err := os.ReadFile(filepath.Join(dir, "a.annot.vcf"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(result)), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "##fileformat"))
	assert.Contains(t, lines[2], "GVA_TYPE=SNV")
	assert.Contains(t, lines[3], "DP=10;GVA_TYPE=INS")
	assert.Contains(t, lines[4], "GVA_TYPE=DEL")
	assert.Contains(t, lines[5], "GVA_TYPE=MNV")
}

func TestWriteCountLogUsesInputFileNameSuffix(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "a.vcf")
	require.NoError(t, os.WriteFile(inputPath, []byte(sampleVCF), 0o644))

	counts, annotated, err := annotate(inputPath)
	require.NoError(t, err)

	require.NoError(t, writeCountLog(inputPath, "job-1", "user-1", counts, annotated, 0))

	log, err := os.ReadFile(filepath.Join(dir, "a.vcf.count.log"))
	require.NoError(t, err)

	text := string(log)
	assert.Contains(t, text, "input: a.vcf")
	assert.Contains(t, text, "job: job-1")
	assert.Contains(t, text, "variants annotated: 4")
	assert.Contains(t, text, "SNV: 1")
}

func TestResultPathReplacesExtension(t *testing.T) {
	assert.Equal(t, "/tmp/a.annot.vcf", resultPath("/tmp/a.vcf"))
	assert.Equal(t, "/tmp/sample.final.annot.vcf", resultPath("/tmp/sample.final.vcf"))
}
