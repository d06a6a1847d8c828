package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Standalone annotation executable. The worker invokes it as
//
//	gva-annotator <input.vcf> [job_id] [user_id] [notification_address]
//
// and collects the two artifacts written beside the input:
// <base>.annot.vcf and <input>.count.log.

func main() {
	if len(os.Args) < 2 {
		fmt.Println("A valid .vcf file must be provided as the first argument.")
		fmt.Println("Usage: gva-annotator <input.vcf> [job_id] [user_id] [notification_address]")
		return
	}

	inputPath := os.Args[1]
	jobID := arg(2)
	userID := arg(3)

	start := time.Now()
	counts, annotated, err := annotate(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "annotation failed: %v\n", err)
		os.Exit(1)
	}

	if err := writeCountLog(inputPath, jobID, userID, counts, annotated, time.Since(start)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write count log: %v\n", err)
		os.Exit(1)
	}
}

func arg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func resultPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".annot.vcf"
}

// annotate copies the VCF, tagging each variant record with a GVA_TYPE info
// field, and tallies variant classes for the count log.
func annotate(inputPath string) (map[string]int, int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return nil, 0, err
	}
	defer in.Close()

	out, err := os.Create(resultPath(inputPath))
	if err != nil {
		return nil, 0, err
	}
	defer out.Close()

	counts := make(map[string]int)
	annotated := 0

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			fmt.Fprintln(writer, line)
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			fmt.Fprintln(writer, line)
			continue
		}

		class := classify(fields[3], fields[4])
		counts[class]++
		annotated++

		if len(fields) >= 8 {
			if fields[7] == "." || fields[7] == "" {
				fields[7] = "GVA_TYPE=" + class
			} else {
				fields[7] = fields[7] + ";GVA_TYPE=" + class
			}
		}
		fmt.Fprintln(writer, strings.Join(fields, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	if err := writer.Flush(); err != nil {
		return nil, 0, err
	}

	return counts, annotated, nil
}

func classify(ref, alt string) string {
	switch {
	case len(ref) == 1 && len(alt) == 1:
		return "SNV"
	case len(ref) < len(alt):
		return "INS"
	case len(ref) > len(alt):
		return "DEL"
	default:
		return "MNV"
	}
}

func writeCountLog(inputPath, jobID, userID string, counts map[string]int, annotated int, elapsed time.Duration) error {
	log, err := os.Create(inputPath + ".count.log")
	if err != nil {
		return err
	}
	defer log.Close()

	fmt.Fprintf(log, "input: %s\n", filepath.Base(inputPath))
	if jobID != "" {
		fmt.Fprintf(log, "job: %s\n", jobID)
	}
	if userID != "" {
		fmt.Fprintf(log, "user: %s\n", userID)
	}
	fmt.Fprintf(log, "variants annotated: %d\n", annotated)

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Fprintf(log, "%s: %d\n", class, counts[class])
	}

	fmt.Fprintf(log, "elapsed: %s\n", elapsed.Round(time.Millisecond))
	return nil
}
