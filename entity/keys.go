package entity

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Artifact names and storage keys are pure functions of the job record, so
// any component can reconstruct them without extra lookups or stored state.
// The canonical key layout is {prefix}/{user_id}/{job_id}~{filename}.

// ResultFileName replaces the input's extension with .annot.vcf, so a.vcf
// becomes a.annot.vcf.
func ResultFileName(inputFileName string) string {
	ext := filepath.Ext(inputFileName)
	return strings.TrimSuffix(inputFileName, ext) + ".annot.vcf"
}

// LogFileName appends .count.log to the full input filename, so a.vcf
// becomes a.vcf.count.log.
func LogFileName(inputFileName string) string {
	return inputFileName + ".count.log"
}

func ObjectKey(prefix, userID, jobID, filename string) string {
	return fmt.Sprintf("%s/%s/%s~%s", prefix, userID, jobID, filename)
}

func ResultKey(prefix, userID, jobID, inputFileName string) string {
	return ObjectKey(prefix, userID, jobID, ResultFileName(inputFileName))
}

func LogKey(prefix, userID, jobID, inputFileName string) string {
	return ObjectKey(prefix, userID, jobID, LogFileName(inputFileName))
}

// ParseObjectKey recovers the owner, job id and filename from a canonical
// key.
func ParseObjectKey(key string) (userID, jobID, filename string, err error) {
	base := path.Base(key)
	jobID, filename, found := strings.Cut(base, "~")
	if !found || jobID == "" || filename == "" {
		return "", "", "", errors.New("object key does not match {prefix}/{user_id}/{job_id}~{filename}")
	}
	userID = path.Base(path.Dir(key))
	if userID == "" || userID == "." || userID == "/" {
		return "", "", "", errors.New("object key does not match {prefix}/{user_id}/{job_id}~{filename}")
	}
	return userID, jobID, filename, nil
}
