package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactFileNames(t *testing.T) {
	assert.Equal(t, "a.annot.vcf", ResultFileName("a.vcf"))
	assert.Equal(t, "a.vcf.count.log", LogFileName("a.vcf"))

	assert.Equal(t, "sample.final.annot.vcf", ResultFileName("sample.final.vcf"))
	assert.Equal(t, "noext.annot.vcf", ResultFileName("noext"))
}

func TestObjectKeyLayout(t *testing.T) {
	key := ObjectKey("annotations", "user-1", "job-1", "a.vcf")
	assert.Equal(t, "annotations/user-1/job-1~a.vcf", key)

	assert.Equal(t, "annotations/user-1/job-1~a.annot.vcf", ResultKey("annotations", "user-1", "job-1", "a.vcf"))
	assert.Equal(t, "annotations/user-1/job-1~a.vcf.count.log", LogKey("annotations", "user-1", "job-1", "a.vcf"))
}

func TestParseObjectKeyRoundTrip(t *testing.T) {
	key := ObjectKey("annotations", "user-1", "job-1", "a.vcf")

	userID, jobID, filename, err := ParseObjectKey(key)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "a.vcf", filename)
}

func TestParseObjectKeyRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "no-separator", "prefix/user/nofilename~", "prefix/user/~orphan"} {
		_, _, _, err := ParseObjectKey(key)
		assert.Error(t, err, "key %q", key)
	}
}
