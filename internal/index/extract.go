// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/docfinder/internal/filetype"
)

// maxChunkBytes bounds a single chunk; longer paragraphs are split at
// whitespace.
const maxChunkBytes = 4000

// ctxCheckEvery is how many lines or rows pass between context checks.
const ctxCheckEvery = 256

// chunk is one searchable unit of a file.
type chunk struct {
	Heading string
	Content string
	Row     map[string]string
}

// extract reads r as a file of type tag and splits it into chunks.
func extract(ctx context.Context, r io.Reader, tag string) ([]chunk, error) {
	switch {
	case filetype.Tabular(tag):
		return extractRows(ctx, r, tag == "tsv")
	case tag == "md":
		return extractParagraphs(ctx, r, true, "")
	case tag == "html":
		return extractHTML(ctx, r)
	case tag == "eml":
		return extractMail(ctx, r)
	default:
		return extractParagraphs(ctx, r, false, "")
	}
}

// extractParagraphs splits text at blank lines. With markdown set, ATX
// heading lines start a new section and label the chunks after them.
func extractParagraphs(ctx context.Context, r io.Reader, markdown bool, heading string) ([]chunk, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		chunks  []chunk
		para    []string
		hasBody bool
		line    int
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(para, "\n"))
		para = para[:0]
		if text == "" {
			return
		}
		hasBody = true
		for _, part := range splitLong(text) {
			chunks = append(chunks, chunk{Heading: heading, Content: part})
		}
	}

	for sc.Scan() {
		line++
		if line%ctxCheckEvery == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		text := sc.Text()
		if markdown {
			if h, ok := atxHeading(text); ok {
				flush()
				if heading != "" && !hasBody {
					chunks = append(chunks, chunk{Heading: heading, Content: heading})
				}
				heading, hasBody = h, false
				continue
			}
		}
		if strings.TrimSpace(text) == "" {
			flush()
			continue
		}
		para = append(para, text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading text: %w", err)
	}
	flush()
	if markdown && heading != "" && !hasBody {
		chunks = append(chunks, chunk{Heading: heading, Content: heading})
	}
	return chunks, nil
}

// atxHeading recognizes "# Title" through "###### Title".
func atxHeading(line string) (string, bool) {
	t := strings.TrimLeft(line, " ")
	if len(line)-len(t) > 3 {
		return "", false
	}
	level := 0
	for level < len(t) && t[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return "", false
	}
	rest := t[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#")), true
}

// splitLong cuts text into pieces of at most maxChunkBytes, breaking at
// the last whitespace before the limit when there is one.
func splitLong(text string) []string {
	var parts []string
	for len(text) > maxChunkBytes {
		cut := strings.LastIndexAny(text[:maxChunkBytes], " \n\t")
		if cut <= 0 {
			cut = maxChunkBytes
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// extractRows turns every data row of a delimited file into one chunk.
// The first record is the header.
func extractRows(ctx context.Context, r io.Reader, tabs bool) ([]chunk, error) {
	cr := csv.NewReader(r)
	if tabs {
		cr.Comma = '\t'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var chunks []chunk
	for n := 1; ; n++ {
		if n%ctxCheckEvery == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", n, err)
		}

		row := make(map[string]string, len(rec))
		values := make([]string, 0, len(rec))
		for i, v := range rec {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			row[columnName(header, i)] = v
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		chunks = append(chunks, chunk{
			Heading: "row " + strconv.Itoa(n),
			Content: strings.Join(values, " | "),
			Row:     row,
		})
	}
	return chunks, nil
}

func columnName(header []string, i int) string {
	if i < len(header) {
		if name := strings.TrimSpace(header[i]); name != "" {
			return name
		}
	}
	return "column " + strconv.Itoa(i+1)
}

// extractHTML drops scripts and styles, converts the body to markdown and
// chunks it like a markdown file. The page title labels chunks that come
// before the first heading.
func extractHTML(ctx context.Context, r io.Reader) ([]chunk, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	markdown := md.NewConverter("", true, nil).Convert(body)
	return extractParagraphs(ctx, strings.NewReader(markdown), true, title)
}

// extractMail indexes the body of an RFC 5322 message under its subject,
// with a first chunk holding the sender and recipients.
func extractMail(ctx context.Context, r io.Reader) ([]chunk, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	subject := msg.Header.Get("Subject")

	var head []string
	for _, k := range []string{"From", "To", "Cc", "Date"} {
		if v := msg.Header.Get(k); v != "" {
			head = append(head, k+": "+v)
		}
	}
	var chunks []chunk
	if len(head) > 0 {
		chunks = append(chunks, chunk{Heading: subject, Content: strings.Join(head, "\n")})
	}

	body, err := extractParagraphs(ctx, msg.Body, false, subject)
	if err != nil {
		return nil, err
	}
	return append(chunks, body...), nil
}
