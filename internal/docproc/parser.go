// Package docproc parses structured course documents and chunks their
// lesson content for vector indexing.
//
// Expected document format:
//
//	Course Title: Introduction to Widgets
//	Course Link: https://example.com/widgets
//	Course Instructor: Ada Example
//
//	Lesson 0: Getting Started
//	Lesson Link: https://example.com/widgets/lesson0
//	...lesson body...
package docproc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bull/course-rag-server/internal/course"
)

var (
	courseTitleRe      = regexp.MustCompile(`(?i)^Course Title:\s*(.*)$`)
	courseLinkRe       = regexp.MustCompile(`(?i)^Course Link:\s*(.*)$`)
	courseInstructorRe = regexp.MustCompile(`(?i)^Course Instructor:\s*(.*)$`)
	lessonMarkerRe     = regexp.MustCompile(`(?i)^Lesson\s+(\d+):\s*(.+)$`)
	lessonLinkRe       = regexp.MustCompile(`(?i)^Lesson Link:\s*(.+)$`)
)

// Processor turns raw course documents into a Course plus its content
// chunks.
type Processor struct {
	chunker *Chunker
}

// NewProcessor creates a processor with the given chunking parameters.
func NewProcessor(chunkSize, overlap int) *Processor {
	return &Processor{chunker: NewChunker(chunkSize, overlap)}
}

// ProcessDocument parses a course document. The name is used only for
// error messages. Returns ErrMalformedDocument when the three header
// lines are missing; no partial course is returned.
func (p *Processor) ProcessDocument(name, content string) (*course.Course, []course.Chunk, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")

	crs, bodyStart, err := parseHeaders(name, lines)
	if err != nil {
		return nil, nil, err
	}

	var chunks []course.Chunk
	chunkIndex := 0

	var lessonNumber int
	var lessonTitle, lessonLink string
	var lessonBody []string
	inLesson := false

	flush := func() {
		if !inLesson {
			return
		}
		crs.Lessons = append(crs.Lessons, course.Lesson{
			Number: lessonNumber,
			Title:  lessonTitle,
			Link:   lessonLink,
		})
		body := strings.TrimSpace(strings.Join(lessonBody, "\n"))
		if body == "" {
			return // lesson with no content yields zero chunks
		}
		n := lessonNumber
		for i, text := range p.chunker.ChunkText(body) {
			if i == 0 {
				text = fmt.Sprintf("Course %s Lesson %d content: %s", crs.Title, n, text)
			}
			chunks = append(chunks, course.Chunk{
				Content:      text,
				CourseTitle:  crs.Title,
				LessonNumber: &n,
				ChunkIndex:   chunkIndex,
			})
			chunkIndex++
		}
	}

	for i := bodyStart; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := lessonMarkerRe.FindStringSubmatch(line); m != nil {
			flush()
			lessonNumber, _ = strconv.Atoi(m[1])
			lessonTitle = strings.TrimSpace(m[2])
			lessonLink = ""
			lessonBody = nil
			inLesson = true

			// A "Lesson Link:" directly below the marker belongs to the
			// lesson, not its body.
			if i+1 < len(lines) {
				if lm := lessonLinkRe.FindStringSubmatch(strings.TrimSpace(lines[i+1])); lm != nil {
					lessonLink = strings.TrimSpace(lm[1])
					i++
				}
			}
			continue
		}

		if inLesson {
			lessonBody = append(lessonBody, lines[i])
		}
	}
	flush()

	// No lesson markers at all: index the remainder as course-level
	// content with no lesson number.
	if len(chunks) == 0 && !inLesson {
		body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
		for _, text := range p.chunker.ChunkText(body) {
			chunks = append(chunks, course.Chunk{
				Content:     text,
				CourseTitle: crs.Title,
				ChunkIndex:  chunkIndex,
			})
			chunkIndex++
		}
	}

	return crs, chunks, nil
}

// parseHeaders validates the three required header lines and returns the
// course shell plus the index of the first body line. Header values may
// be empty; only the header lines themselves are mandatory.
func parseHeaders(name string, lines []string) (*course.Course, int, error) {
	headers := make([]string, 0, 3)
	next := 0
	for ; next < len(lines) && len(headers) < 3; next++ {
		if line := strings.TrimSpace(lines[next]); line != "" {
			headers = append(headers, line)
		}
	}
	if len(headers) < 3 {
		return nil, 0, fmt.Errorf("%s: %w: expected 3 header lines, found %d", name, ErrMalformedDocument, len(headers))
	}

	title := courseTitleRe.FindStringSubmatch(headers[0])
	link := courseLinkRe.FindStringSubmatch(headers[1])
	instructor := courseInstructorRe.FindStringSubmatch(headers[2])
	if title == nil || link == nil || instructor == nil {
		return nil, 0, fmt.Errorf("%s: %w: missing Course Title/Link/Instructor headers", name, ErrMalformedDocument)
	}
	if strings.TrimSpace(title[1]) == "" {
		return nil, 0, fmt.Errorf("%s: %w: empty course title", name, ErrMalformedDocument)
	}

	return &course.Course{
		Title:      strings.TrimSpace(title[1]),
		Link:       strings.TrimSpace(link[1]),
		Instructor: strings.TrimSpace(instructor[1]),
	}, next, nil
}
